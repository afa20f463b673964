package core

import "context"

// Part is one element of a generation request: either text or an uploaded file.
type Part struct {
	Text string
	File *FileHandle
}

func TextPart(s string) Part { return Part{Text: s} }

func FilePart(h *FileHandle) Part { return Part{File: h} }

type GenerateRequest struct {
	Contents          []Part
	SystemInstruction string
	ResponseMIMEType  string
}

type Candidate struct {
	Text         string
	FinishReason string
}

// GenerateResponse carries the primary text (empty when the first candidate
// was blocked or had no parts) and every candidate the model returned.
type GenerateResponse struct {
	Text       string
	Candidates []Candidate
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

type FileState string

const (
	FileStateUnspecified FileState = "STATE_UNSPECIFIED"
	FileStateProcessing  FileState = "PROCESSING"
	FileStateActive      FileState = "ACTIVE"
	FileStateFailed      FileState = "FAILED"
)

// FileHandle references a file uploaded to the model service.
type FileHandle struct {
	Name     string
	URI      string
	MIMEType string
	State    FileState
}

type FileService interface {
	Upload(ctx context.Context, path string) (*FileHandle, error)
	Get(ctx context.Context, name string) (*FileHandle, error)
	Delete(ctx context.Context, name string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, h *FileHandle) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioProcessor converts synthesized speech into a sendable voice note.
type AudioProcessor interface {
	ConvertToOpus(ctx context.Context, in, out string) error
	Metadata(ctx context.Context, path string) (duration int, waveform string, err error)
}

// CandidateText returns the text of candidate i, if there is one with content.
func (r *GenerateResponse) CandidateText(i int) (string, bool) {
	if r == nil || i < 0 || i >= len(r.Candidates) {
		return "", false
	}
	text := r.Candidates[i].Text
	return text, text != ""
}
