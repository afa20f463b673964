package llm

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sandevgo/muse/internal/core"
)

type fileObject struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

func (f fileObject) handle() *core.FileHandle {
	state := core.FileState(f.State)
	if state == "" {
		state = core.FileStateUnspecified
	}
	return &core.FileHandle{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType, State: state}
}

// Upload sends a local file through the resumable upload protocol.
func (g *Gemini) Upload(ctx context.Context, path string) (*core.FileHandle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	mimeType := mimeTypeOf(path)

	headers := g.headers()
	headers["X-Goog-Upload-Protocol"] = "resumable"
	headers["X-Goog-Upload-Command"] = "start"
	headers["X-Goog-Upload-Header-Content-Length"] = strconv.Itoa(len(data))
	headers["X-Goog-Upload-Header-Content-Type"] = mimeType

	meta := map[string]any{"file": map[string]string{"display_name": filepath.Base(path)}}
	resp, err := g.doRequest(ctx, http.MethodPost, "/upload/v1beta/files", meta, headers)
	if err != nil {
		return nil, err
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if err := decodeResponse(resp, nil); err != nil {
		return nil, fmt.Errorf("start upload: %w", err)
	}
	if uploadURL == "" {
		return nil, fmt.Errorf("start upload: no upload url returned")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resp, err = g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	var out struct {
		File fileObject `json:"file"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if out.File.MIMEType == "" {
		out.File.MIMEType = mimeType
	}
	return out.File.handle(), nil
}

func (g *Gemini) Get(ctx context.Context, name string) (*core.FileHandle, error) {
	resp, err := g.doRequest(ctx, http.MethodGet, "/v1beta/"+name, nil, g.headers())
	if err != nil {
		return nil, err
	}

	var out fileObject
	if err := decodeResponse(resp, &out); err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return out.handle(), nil
}

func (g *Gemini) Delete(ctx context.Context, name string) error {
	resp, err := g.doRequest(ctx, http.MethodDelete, "/v1beta/"+name, nil, g.headers())
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

var extraMIMETypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".aiff": "audio/aiff",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wmv":  "video/wmv",
	".mov":  "video/mov",
}

func mimeTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extraMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
