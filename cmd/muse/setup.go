package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/observability"
	"github.com/sandevgo/muse/internal/providers/audio"
	"github.com/sandevgo/muse/internal/providers/llm"
	"github.com/sandevgo/muse/internal/providers/tts"
	"github.com/sandevgo/muse/internal/service/attachment"
	"github.com/sandevgo/muse/internal/service/command"
	"github.com/sandevgo/muse/internal/service/memory"
	"github.com/sandevgo/muse/internal/service/prompt"
	"github.com/sandevgo/muse/internal/service/responder"
	"github.com/sandevgo/muse/internal/service/window"
	"github.com/sandevgo/muse/internal/storage/jsonfile"
	"github.com/sandevgo/muse/internal/storage/sqlite"
	"github.com/sandevgo/muse/internal/transport/control"
	"github.com/sandevgo/muse/internal/transport/telegram"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	geminiCfg := config.NewGeminiConfig(ctx)
	voiceCfg := config.NewElevenLabsConfig(ctx)
	controlCfg := config.NewControlConfig(ctx)
	metrics := observability.NewMetrics()

	// 2. Storage
	memories, cleanup, err := initMemoryStore(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize memory store")
	}
	if cleanup != nil {
		services = append(services, cleanup)
	}

	activation := jsonfile.NewActivationStore(appCfg.GetActivationPath())
	if err := activation.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize activation flags")
	}

	settings := jsonfile.NewSettingsStore(appCfg.GetSettingsPath())

	persona := prompt.NewStore(appCfg.GetPersonaPath())
	if err := persona.Load(ctx); err != nil {
		logger.Warn().Err(err).Str("path", persona.Path()).Msg("persona not loaded, using defaults")
	}
	services = append(services, persona)

	// 3. Model service
	gemini := llm.NewGemini(geminiCfg)

	// 4. Reply pipeline
	win := window.New(appCfg.ContextWindowSize)
	matcher := memory.NewMatcher(memories, win, gemini, metrics)
	pipeline := attachment.NewPipeline(gemini, attachment.Config{
		StagingDir:       appCfg.GetStagingPath(),
		PollAttempts:     appCfg.PollAttempts,
		PollInitialDelay: appCfg.PollInitialDelay,
		PollMaxDelay:     appCfg.PollMaxDelay,
	})

	deps := responder.Deps{
		Window:      win,
		Matcher:     matcher,
		Persona:     persona,
		Attachments: pipeline,
		Generator:   gemini,
		Transcriber: gemini,
		Activation:  activation,
		Settings:    settings,
		Metrics:     metrics,
	}
	if voiceCfg.IsConfigured() {
		ffmpeg := audio.NewFFmpeg()
		if ffmpeg.Available() {
			deps.Synthesizer = tts.NewElevenLabs(voiceCfg)
			deps.Audio = ffmpeg
		} else {
			logger.Warn().Msg("ffmpeg or ffprobe not found, voice replies disabled")
		}
	}

	replyCfg := responder.Config{
		ErrorMessage:      appCfg.ErrorMessage,
		RetryCount:        appCfg.RetryCount,
		DebugMode:         appCfg.DebugMode,
		ChunkSize:         appCfg.ChunkSize,
		VoiceMessages:     appCfg.VoiceMessages,
		VoiceChance:       appCfg.VoiceChance,
		VoiceMessageConvo: appCfg.VoiceMessageConvo,
		TextFrequency:     appCfg.TextFrequency,
		KeywordChance:     appCfg.KeywordChance,
		Keywords:          appCfg.Keywords,
		LogPromptTokens:   appCfg.LogPromptTokens,
		StagingDir:        appCfg.GetStagingPath(),
	}
	if saved, found, err := settings.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("saved settings not loaded, using environment")
	} else if found {
		replyCfg = replyCfg.Apply(saved)
	}
	orchestrator := responder.New(replyCfg, deps)
	services = append(services, srv.NewCleanup("staging", func() error {
		return os.RemoveAll(appCfg.GetStagingPath())
	}))

	router := command.New(command.NewCommands(command.Deps{
		Forgetter:  orchestrator,
		Activation: activation,
		Summarizer: matcher,
		Persona:    persona,
		Memories:   memories,
	}))

	// 5. Transports
	tgCfg := config.NewTelegramConfig(ctx)
	bot, err := telegram.NewBot(ctx, tgCfg, orchestrator, router)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	services = append(services, bot)

	if controlCfg.Enabled {
		services = append(services, control.New(controlCfg, memories, persona, orchestrator, activation, metrics))
	}

	return services
}

// initMemoryStore opens the configured backend. The returned service, if any,
// closes it on shutdown.
func initMemoryStore(ctx context.Context, cfg *config.AppConfig) (core.MemoryStore, srv.Service, error) {
	if cfg.IsSQLiteSelected() {
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewMemoryStore(db), srv.NewCleanup("memory database", db.Close), nil
	}

	if err := os.MkdirAll(cfg.GetDataPath(), 0755); err != nil {
		return nil, nil, err
	}
	return jsonfile.NewMemoryStore(cfg.GetMemoriesPath()), nil, nil
}

func openDB(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.GetDatabasePath()), 0755); err != nil {
		return nil, err
	}
	return sqlite.NewDB(ctx, cfg.GetDatabasePath())
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
