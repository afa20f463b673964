package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

const (
	micInstruction = "You are now a microphone, you will ONLY return the words in the audio file, DO NOT describe them."

	harmHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	harmHarassment       = "HARM_CATEGORY_HARASSMENT"
	harmSexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	harmDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

type Gemini struct {
	baseProvider
	safety     []safetySetting
	generation generationConfig
}

func NewGemini(cfg *config.GeminiConfig) *Gemini {
	return &Gemini{
		baseProvider: newBaseProvider(strings.TrimRight(cfg.BaseURL, "/"), cfg.APIKey, cfg.Model),
		safety: []safetySetting{
			{Category: harmHateSpeech, Threshold: cfg.HateSpeech},
			{Category: harmHarassment, Threshold: cfg.Harassment},
			{Category: harmSexuallyExplicit, Threshold: cfg.SexuallyExplicit},
			{Category: harmDangerousContent, Threshold: cfg.DangerousContent},
		},
		generation: generationConfig{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
		},
	}
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	TopP             float64 `json:"topP,omitempty"`
	TopK             int     `json:"topK,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	SafetySettings    []safetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (g *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": g.apiKey}
}

func (g *Gemini) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResponse, error) {
	payload := generateRequest{
		Contents:         []content{{Role: "user", Parts: toParts(req.Contents)}},
		SafetySettings:   g.safety,
		GenerationConfig: g.generation,
	}
	payload.GenerationConfig.ResponseMIMEType = req.ResponseMIMEType
	if req.SystemInstruction != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}

	resp, err := g.doRequest(ctx, http.MethodPost, "/v1beta/models/"+g.model+":generateContent", payload, g.headers())
	if err != nil {
		return nil, err
	}

	var out generateResponse
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}

	if out.PromptFeedback.BlockReason != "" {
		log.FromCtx(ctx).Warn().Str("reason", out.PromptFeedback.BlockReason).Msg("prompt blocked by model")
	}
	return toResponse(out), nil
}

// Transcribe returns the words spoken in an uploaded audio file.
func (g *Gemini) Transcribe(ctx context.Context, h *core.FileHandle) (string, error) {
	resp, err := g.Generate(ctx, core.GenerateRequest{
		Contents: []core.Part{core.TextPart(micInstruction), core.FilePart(h)},
	})
	if err != nil {
		return "", err
	}
	if resp.Text != "" {
		return strings.TrimSpace(resp.Text), nil
	}
	text, _ := resp.CandidateText(0)
	return strings.TrimSpace(text), nil
}

func toParts(parts []core.Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.File != nil {
			out = append(out, part{FileData: &fileData{MIMEType: p.File.MIMEType, FileURI: p.File.URI}})
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}

// toResponse mirrors the SDK accessor: the primary text exists only when the
// first candidate finished normally and carries parts.
func toResponse(r generateResponse) *core.GenerateResponse {
	out := &core.GenerateResponse{Candidates: make([]core.Candidate, 0, len(r.Candidates))}
	for i, c := range r.Candidates {
		var b strings.Builder
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		text := b.String()
		out.Candidates = append(out.Candidates, core.Candidate{Text: text, FinishReason: c.FinishReason})

		if i == 0 && blockedReason(c.FinishReason) == "" {
			out.Text = text
		}
	}
	return out
}

func blockedReason(reason string) string {
	switch reason {
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return reason
	}
	return ""
}
