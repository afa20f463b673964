package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandevgo/muse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		assert.Equal(t, "eleven_multilingual_v2", req.ModelID)

		w.Header().Set("Content-Type", "audio/mpeg")
		io.WriteString(w, "ID3-audio")
	}))
	defer server.Close()

	e := NewElevenLabs(&config.ElevenLabsConfig{APIKey: "secret", VoiceID: "voice-1", BaseURL: server.URL})
	audio, err := e.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(audio))
}

func TestElevenLabs_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"invalid key"}`)
	}))
	defer server.Close()

	tests := []struct {
		name  string
		voice string
		text  string
	}{
		{name: "http error", voice: "v", text: "hi"},
		{name: "missing voice", voice: "", text: "hi"},
		{name: "empty text", voice: "v", text: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewElevenLabs(&config.ElevenLabsConfig{APIKey: "k", VoiceID: tt.voice, BaseURL: server.URL})
			_, err := e.Synthesize(context.Background(), tt.text)
			assert.Error(t, err)
		})
	}
}
