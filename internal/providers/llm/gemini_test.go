package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(url string) *Gemini {
	return NewGemini(&config.GeminiConfig{
		APIKey:           "test-key",
		Model:            "gemini-test",
		BaseURL:          url,
		Temperature:      1,
		TopP:             0.95,
		TopK:             64,
		HateSpeech:       "BLOCK_NONE",
		Harassment:       "BLOCK_NONE",
		SexuallyExplicit: "BLOCK_ONLY_HIGH",
		DangerousContent: "BLOCK_NONE",
	})
}

func TestGemini_Generate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"there"}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	g := newTestGemini(server.URL)
	resp, err := g.Generate(context.Background(), core.GenerateRequest{
		Contents: []core.Part{
			core.TextPart("prompt"),
			core.FilePart(&core.FileHandle{URI: "https://files/abc", MIMEType: "image/png"}),
		},
		SystemInstruction: "be json",
		ResponseMIMEType:  "application/json",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text)
	require.Len(t, resp.Candidates, 1)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "https://files/abc", got.Contents[0].Parts[1].FileData.FileURI)
	assert.Equal(t, "be json", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMIMEType)
	assert.Len(t, got.SafetySettings, 4)
	assert.Equal(t, 64, got.GenerationConfig.TopK)
}

func TestGemini_GenerateBlockedFirstCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[
			{"content":{"parts":[]},"finishReason":"SAFETY"},
			{"content":{"parts":[{"text":"second"}]},"finishReason":"STOP"}
		]}`)
	}))
	defer server.Close()

	resp, err := newTestGemini(server.URL).Generate(context.Background(), core.GenerateRequest{
		Contents: []core.Part{core.TextPart("x")},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Text)
	text, ok := resp.CandidateText(1)
	assert.True(t, ok)
	assert.Equal(t, "second", text)
}

func TestGemini_GenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota"}}`)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Generate(context.Background(), core.GenerateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}

func TestGemini_FileLifecycle(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resumable", r.Header.Get("X-Goog-Upload-Protocol"))
		assert.Equal(t, "start", r.Header.Get("X-Goog-Upload-Command"))
		assert.Equal(t, "image/png", r.Header.Get("X-Goog-Upload-Header-Content-Type"))
		w.Header().Set("X-Goog-Upload-URL", server.URL+"/resumable/session-1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/resumable/session-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upload, finalize", r.Header.Get("X-Goog-Upload-Command"))
		uploaded, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"file":{"name":"files/abc","uri":"https://files/abc","mimeType":"image/png","state":"PROCESSING"}}`)
	})
	mux.HandleFunc("/v1beta/files/abc", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"name":"files/abc","uri":"https://files/abc","mimeType":"image/png","state":"ACTIVE"}`)
		case http.MethodDelete:
			io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "42 cat.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0644))

	g := newTestGemini(server.URL)
	ctx := context.Background()

	h, err := g.Upload(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(uploaded))
	assert.Equal(t, core.FileStateProcessing, h.State)

	h, err = g.Get(ctx, h.Name)
	require.NoError(t, err)
	assert.Equal(t, core.FileStateActive, h.State)

	require.NoError(t, g.Delete(ctx, h.Name))
}

func TestMimeTypeOf(t *testing.T) {
	assert.Equal(t, "image/png", mimeTypeOf("a.PNG"))
	assert.Equal(t, "audio/ogg", mimeTypeOf("voice.ogg"))
	assert.Equal(t, "image/heic", mimeTypeOf("x.heic"))
	assert.Equal(t, "application/octet-stream", mimeTypeOf("x.unknownext"))
}
