package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MUSE_RUNTIME_PATH" envDefault:".muse"`
	// Alias prefixes the persisted data files, one bot persona per alias
	Alias string `env:"MUSE_ALIAS" envDefault:"muse"`

	// Context Management
	ContextWindowSize int `env:"CONTEXT_WINDOW_SIZE" envDefault:"30"`

	// Memory persistence: json or sqlite
	MemoryBackend string `env:"MEMORY_BACKEND" envDefault:"json"`

	// Generation
	RetryCount   int    `env:"RETRY_COUNT" envDefault:"3"`
	ErrorMessage string `env:"ERROR_MESSAGE" envDefault:"Sorry, could you please repeat that?"`
	DebugMode    bool   `env:"DEBUG_MODE" envDefault:"false"`
	ChunkSize    int    `env:"CHUNK_SIZE" envDefault:"2000"`

	// Token accounting of rendered prompts, debug only
	LogPromptTokens bool `env:"LOG_PROMPT_TOKENS" envDefault:"false"`

	// Voice replies
	VoiceMessages     bool    `env:"VOICE_MESSAGES" envDefault:"false"`
	VoiceChance       float64 `env:"VOICE_CHANCE" envDefault:"0"`
	VoiceMessageConvo bool    `env:"VOICE_MESSAGE_CONVO" envDefault:"false"`

	// Unprompted replies
	TextFrequency float64  `env:"FREEWILL_TEXT_FREQUENCY" envDefault:"0"`
	KeywordChance float64  `env:"FREEWILL_KEYWORD_CHANCE" envDefault:"0"`
	Keywords      []string `env:"FREEWILL_KEYWORDS" envSeparator:","`

	// Attachment readiness polling
	PollAttempts     int           `env:"ATTACHMENT_POLL_ATTEMPTS" envDefault:"10"`
	PollInitialDelay time.Duration `env:"ATTACHMENT_POLL_INITIAL_DELAY" envDefault:"2s"`
	PollMaxDelay     time.Duration `env:"ATTACHMENT_POLL_MAX_DELAY" envDefault:"15s"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = GetRuntimePath()
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDataPath() string {
	return filepath.Join(c.RuntimePath, "data")
}

func (c AppConfig) GetMemoriesPath() string {
	return filepath.Join(c.GetDataPath(), c.Alias+"-memories.json")
}

func (c AppConfig) GetActivationPath() string {
	return filepath.Join(c.GetDataPath(), c.Alias+"-activation.json")
}

func (c AppConfig) GetSettingsPath() string {
	return filepath.Join(c.GetDataPath(), c.Alias+"-config.json")
}

// GetPersonaPath prefers a YAML profile when one exists next to the JSON default.
func (c AppConfig) GetPersonaPath() string {
	for _, name := range []string{"persona.yaml", "persona.yml"} {
		path := filepath.Join(c.RuntimePath, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(c.RuntimePath, "persona.json")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "muse.db")
}

func (c AppConfig) GetStagingPath() string {
	return filepath.Join(c.RuntimePath, "staging")
}

func (c AppConfig) IsSQLiteSelected() bool {
	return c.MemoryBackend == "sqlite"
}
