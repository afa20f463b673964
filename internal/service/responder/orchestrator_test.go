package responder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/attachment"
	"github.com/sandevgo/muse/internal/service/prompt"
	"github.com/sandevgo/muse/internal/service/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	resp  *core.GenerateResponse
	err   error
	calls []core.GenerateRequest
	panic bool
}

func (f *fakeGenerator) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.panic {
		panic("boom")
	}
	return f.resp, f.err
}

type fakeRecaller struct {
	memory string
}

func (f fakeRecaller) Recall(ctx context.Context, guildID, convID, text string) (string, bool) {
	return f.memory, f.memory != ""
}

type staticPersona struct{}

func (staticPersona) Current() prompt.Profile {
	return prompt.Profile{Traits: prompt.Traits{Name: "Ava"}}
}

type fakeActivation map[string]bool

func (f fakeActivation) IsActive(ctx context.Context, convID string) bool { return f[convID] }

func (f fakeActivation) SetActive(ctx context.Context, convID string, active bool) error {
	f[convID] = active
	return nil
}

type fakeFiles struct {
	mu      sync.Mutex
	state   core.FileState
	deleted []string
}

func (f *fakeFiles) Upload(ctx context.Context, path string) (*core.FileHandle, error) {
	return &core.FileHandle{Name: "files/" + filepath.Base(path), State: f.state}, nil
}

func (f *fakeFiles) Get(ctx context.Context, name string) (*core.FileHandle, error) {
	return &core.FileHandle{Name: name, State: f.state}, nil
}

func (f *fakeFiles) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeAttachment struct {
	name string
}

func (a fakeAttachment) Name() string { return a.name }

func (a fakeAttachment) Save(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("data"), 0644)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, h *core.FileHandle) (string, error) {
	return f.text, f.err
}

type fakeSynth struct {
	err error
}

func (f fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("mp3"), f.err
}

type fakeAudio struct{}

func (fakeAudio) ConvertToOpus(ctx context.Context, in, out string) error {
	return os.WriteFile(out, []byte("ogg"), 0644)
}

func (fakeAudio) Metadata(ctx context.Context, path string) (int, string, error) {
	return 3, "d2F2ZQ==", nil
}

type harness struct {
	orch    *Orchestrator
	win     *window.Window
	gen     *fakeGenerator
	files   *fakeFiles
	staging string
}

func newHarness(t *testing.T, cfg Config, mutate func(*Deps)) *harness {
	t.Helper()
	staging := t.TempDir()
	files := &fakeFiles{state: core.FileStateActive}
	pipeline := attachment.NewPipeline(files, attachment.Config{
		StagingDir:       staging,
		PollAttempts:     2,
		PollInitialDelay: time.Millisecond,
		PollMaxDelay:     time.Millisecond,
	})

	h := &harness{
		win:     window.New(10),
		gen:     &fakeGenerator{resp: &core.GenerateResponse{Text: "hello there"}},
		files:   files,
		staging: staging,
	}

	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "Sorry, could you please repeat that?"
	}
	cfg.StagingDir = staging

	deps := Deps{
		Window:      h.win,
		Matcher:     fakeRecaller{},
		Persona:     staticPersona{},
		Attachments: pipeline,
		Generator:   h.gen,
		Transcriber: fakeTranscriber{text: "what time is it"},
		Activation:  fakeActivation{},
		Rand:        func() float64 { return 0.5 },
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.orch = New(cfg, deps)
	return h
}

func mention(text string) core.Event {
	return core.Event{
		MessageID:      "m1",
		AuthorName:     "bob",
		ConversationID: "c1",
		GuildID:        "g1",
		Text:           text,
		Mentioned:      true,
	}
}

func stagedFiles(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRespond_Rejects(t *testing.T) {
	tests := []struct {
		name string
		ev   core.Event
	}{
		{name: "own message", ev: core.Event{Text: "hi", FromSelf: true, Mentioned: true}},
		{name: "command", ev: core.Event{Text: "/forget", IsCommand: true, Mentioned: true}},
		{name: "not addressed", ev: core.Event{ConversationID: "c1", Text: "hi"}},
		{name: "empty", ev: core.Event{ConversationID: "c1", Mentioned: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{}, nil)
			assert.Nil(t, h.orch.Respond(context.Background(), tt.ev))
			assert.Empty(t, h.gen.calls)
			assert.Zero(t, h.win.Len("c1"))
		})
	}
}

func TestRespond_ActivatedConversation(t *testing.T) {
	h := newHarness(t, Config{}, func(d *Deps) {
		d.Activation = fakeActivation{"c1": true}
	})

	ev := mention("hi")
	ev.Mentioned = false

	reply := h.orch.Respond(context.Background(), ev)
	require.NotNil(t, reply)
	assert.Equal(t, "hello there", reply.Content())
}

func TestRespond_Freewill(t *testing.T) {
	cfg := Config{TextFrequency: 10, KeywordChance: 50, Keywords: []string{"pizza"}}

	h := newHarness(t, cfg, nil)
	ev := mention("anything")
	ev.Mentioned = false
	assert.Nil(t, h.orch.Respond(context.Background(), ev), "0.5 draw exceeds 10%")

	ev.Text = "who wants PIZZA"
	assert.NotNil(t, h.orch.Respond(context.Background(), ev), "keyword lifts chance to 60%")
}

func TestRespond_TextReply(t *testing.T) {
	h := newHarness(t, Config{}, func(d *Deps) {
		d.Matcher = fakeRecaller{memory: "bob likes tea"}
	})

	reply := h.orch.Respond(context.Background(), mention("hi"))

	text, ok := reply.(core.TextReply)
	require.True(t, ok)
	assert.Equal(t, "hello there", text.Text)
	assert.Equal(t, []string{"hello there"}, text.Chunks)

	require.Len(t, h.gen.calls, 1)
	require.Len(t, h.gen.calls[0].Contents, 1)
	body := h.gen.calls[0].Contents[0].Text
	assert.Contains(t, body, "bob likes tea")
	assert.Contains(t, body, "---- CONVERSATION ----\nbob: hi")

	h.orch.Delivered("c1", "r1", "hello there")
	assert.Equal(t, []string{"bob: hi", "Ava: hello there"}, h.win.Render("c1"))

	assert.True(t, h.orch.Forget("c1", "r1"))
	assert.Equal(t, []string{"bob: hi"}, h.win.Render("c1"))
}

func TestRespond_GenerationFailureEvictsOldest(t *testing.T) {
	h := newHarness(t, Config{RetryCount: 3}, nil)
	h.gen.resp = &core.GenerateResponse{Candidates: []core.Candidate{{Text: ""}, {Text: "[]"}}}
	h.gen.err = errors.New("upstream unavailable")

	h.win.Append("c1", core.Turn{Author: "amy", Text: "old", SequenceID: "m0"})

	reply := h.orch.Respond(context.Background(), mention("hi"))
	require.NotNil(t, reply)
	assert.Equal(t, "Sorry, could you please repeat that?", reply.Content())
	assert.Equal(t, []string{"bob: hi"}, h.win.Render("c1"))
}

func TestRespond_DebugModeAppendsCause(t *testing.T) {
	h := newHarness(t, Config{RetryCount: 1, DebugMode: true}, nil)
	h.gen.resp = nil
	h.gen.err = errors.New("quota exceeded")

	reply := h.orch.Respond(context.Background(), mention("hi"))
	assert.Contains(t, reply.Content(), "Sorry, could you please repeat that?")
	assert.Contains(t, reply.Content(), "quota exceeded")
}

func TestRespond_CandidateFallback(t *testing.T) {
	h := newHarness(t, Config{RetryCount: 3}, nil)
	h.gen.resp = &core.GenerateResponse{Candidates: []core.Candidate{{Text: ""}, {Text: "second"}}}

	reply := h.orch.Respond(context.Background(), mention("hi"))
	assert.Equal(t, "second", reply.Content())
	assert.Equal(t, 1, h.win.Len("c1"))
}

func TestRespond_PanicBecomesErrorMessage(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.gen.panic = true

	reply := h.orch.Respond(context.Background(), mention("hi"))
	require.NotNil(t, reply)
	assert.Equal(t, "Sorry, could you please repeat that?", reply.Content())
}

func TestRespond_MediaAttachment(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	ev := mention("look")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "cat.png"}}

	reply := h.orch.Respond(context.Background(), ev)
	assert.Equal(t, "hello there", reply.Content())

	require.Len(t, h.gen.calls, 1)
	parts := h.gen.calls[0].Contents
	require.Len(t, parts, 3)
	require.NotNil(t, parts[2].File)
	assert.Equal(t, "files/m1 cat.png", parts[2].File.Name)

	assert.Equal(t, []string{"files/m1 cat.png"}, h.files.deleted)
	assert.Empty(t, stagedFiles(t, h.staging))
}

func TestRespond_FailedUploadSendsNoFile(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.files.state = core.FileStateFailed

	ev := mention("look")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "clip.mp4"}}

	reply := h.orch.Respond(context.Background(), ev)
	assert.Equal(t, "hello there", reply.Content())

	require.Len(t, h.gen.calls, 1)
	for _, p := range h.gen.calls[0].Contents {
		assert.Nil(t, p.File)
	}
	assert.Empty(t, stagedFiles(t, h.staging))
}

func TestRespond_VoiceNote(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	ev := mention("")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "voice.ogg"}}

	reply := h.orch.Respond(context.Background(), ev)
	assert.Equal(t, "hello there", reply.Content())
	assert.Equal(t, []string{"bob: what time is it"}, h.win.Render("c1"))

	require.Len(t, h.gen.calls, 1)
	require.Len(t, h.gen.calls[0].Contents, 1)
	assert.Empty(t, stagedFiles(t, h.staging))
}

func TestRespond_VoiceNoteTranscriptionFails(t *testing.T) {
	h := newHarness(t, Config{}, func(d *Deps) {
		d.Transcriber = fakeTranscriber{err: errors.New("stt down")}
	})

	ev := mention("")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "voice.oga"}}

	reply := h.orch.Respond(context.Background(), ev)
	assert.Equal(t, "Sorry, could you please repeat that?", reply.Content())
	assert.Empty(t, h.gen.calls)
	assert.Len(t, h.files.deleted, 1)
	assert.Empty(t, h.win.Turns("c1"))
}

func TestRespond_VoiceNoteUploadFailsLeavesNoTurn(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.files.state = core.FileStateFailed

	ev := mention("")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "voice.ogg"}}

	reply := h.orch.Respond(context.Background(), ev)
	assert.Equal(t, "Sorry, could you please repeat that?", reply.Content())
	assert.Empty(t, h.gen.calls)
	assert.Empty(t, h.win.Turns("c1"))
}

func TestRespond_VoiceNoteIgnoresConvoFlagWhenVoiceOff(t *testing.T) {
	cfg := Config{VoiceMessages: false, VoiceMessageConvo: true}
	h := newHarness(t, cfg, func(d *Deps) {
		d.Synthesizer = fakeSynth{}
		d.Audio = fakeAudio{}
	})

	ev := mention("")
	ev.Attachments = []core.Attachment{fakeAttachment{name: "voice.ogg"}}

	reply := h.orch.Respond(context.Background(), ev)
	_, ok := reply.(core.TextReply)
	assert.True(t, ok)
	assert.Equal(t, "hello there", reply.Content())
}

func TestRespond_VoiceReply(t *testing.T) {
	cfg := Config{VoiceMessages: true, VoiceChance: 0.9}
	h := newHarness(t, cfg, func(d *Deps) {
		d.Synthesizer = fakeSynth{}
		d.Audio = fakeAudio{}
	})

	reply := h.orch.Respond(context.Background(), mention("sing"))

	voice, ok := reply.(core.VoiceReply)
	require.True(t, ok)
	assert.Equal(t, "hello there", voice.Text)
	assert.Equal(t, 3, voice.Note.Duration)
	assert.FileExists(t, voice.Note.Path)
	assert.Equal(t, []string{filepath.Base(voice.Note.Path)}, stagedFiles(t, h.staging))
}

func TestRespond_VoiceReplyFallsBackToText(t *testing.T) {
	cfg := Config{VoiceMessages: true, VoiceChance: 1}
	h := newHarness(t, cfg, func(d *Deps) {
		d.Synthesizer = fakeSynth{err: errors.New("tts down")}
		d.Audio = fakeAudio{}
	})

	reply := h.orch.Respond(context.Background(), mention("sing"))
	_, ok := reply.(core.TextReply)
	assert.True(t, ok)
}

func TestExtractText(t *testing.T) {
	callErr := errors.New("call failed")

	tests := []struct {
		name    string
		resp    *core.GenerateResponse
		err     error
		retries int
		want    string
		wantErr error
	}{
		{name: "primary text", resp: &core.GenerateResponse{Text: "a"}, want: "a"},
		{name: "trims surrounding space", resp: &core.GenerateResponse{Text: " hi \n"}, want: "hi"},
		{
			name:    "padded empty list is unusable",
			resp:    &core.GenerateResponse{Text: " [] ", Candidates: []core.Candidate{{Text: "\tok "}}},
			retries: 1,
			want:    "ok",
		},
		{name: "nil response", err: callErr, retries: 3, wantErr: callErr},
		{
			name:    "skips empty list text",
			resp:    &core.GenerateResponse{Text: "[]", Candidates: []core.Candidate{{Text: "[]"}, {Text: "b"}}},
			retries: 2,
			want:    "b",
		},
		{
			name:    "budget exhausted",
			resp:    &core.GenerateResponse{Candidates: []core.Candidate{{}, {}, {Text: "late"}}},
			retries: 2,
			wantErr: errNoText,
		},
		{
			name:    "candidates survive call error",
			resp:    &core.GenerateResponse{Candidates: []core.Candidate{{Text: "partial"}}},
			err:     callErr,
			retries: 1,
			want:    "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText(tt.resp, tt.err, tt.retries)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
