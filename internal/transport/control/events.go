package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

type eventRequest struct {
	Type           string          `json:"type"`
	Memory         json.RawMessage `json:"memory,omitempty"`
	Personality    map[string]any  `json:"personality,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Active         *bool           `json:"active,omitempty"`
}

// eventError carries the HTTP status an event failure maps to.
type eventError struct {
	status  int
	message string
}

func (e *eventError) Error() string { return e.message }

func badRequest(msg string) error {
	return &eventError{status: http.StatusBadRequest, message: msg}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromCtx(ctx)

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	logger.Info().Str("type", req.Type).Msg("control event received")

	var (
		resp statusResponse
		err  error
	)
	switch req.Type {
	case "update_memory":
		resp, err = s.updateMemory(ctx, req.Memory)
	case "delete_memory":
		resp.Status, err = s.deleteMemory(ctx, req.Memory)
	case "update_personality":
		resp.Status, err = s.updatePersonality(ctx, req.Personality)
	case "update_config":
		resp.Status, err = s.updateConfig(ctx, req.Config)
	case "set_activation":
		resp.Status, err = s.setActivation(ctx, req)
	default:
		respondJSON(w, http.StatusBadRequest, statusResponse{Status: "unknown event"})
		return
	}

	if err != nil {
		var ee *eventError
		if errors.As(err, &ee) {
			respondError(w, ee.status, ee.message)
			return
		}
		logger.Error().Err(err).Str("type", req.Type).Msg("control event failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// guildBatch decodes {"<guild_id>": [records...]} holding exactly one guild.
func guildBatch(raw json.RawMessage) (string, []core.MemoryRecord, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) != 1 {
		return "", nil, badRequest("Invalid memory format")
	}

	var guildID string
	var body json.RawMessage
	for k, v := range m {
		guildID, body = k, v
	}

	var records []core.MemoryRecord
	if err := json.Unmarshal(body, &records); err != nil || len(records) == 0 {
		return "", nil, badRequest("Invalid memories format")
	}
	return guildID, records, nil
}

// updateMemory saves the batch. Records older than the stored copy are named
// in the response message; the rest of the batch is still saved.
func (s *Server) updateMemory(ctx context.Context, raw json.RawMessage) (statusResponse, error) {
	guildID, records, err := guildBatch(raw)
	if err != nil {
		return statusResponse{}, err
	}

	resp := statusResponse{Status: "memory updated"}
	err = s.memories.Upsert(ctx, guildID, records)

	var stale *core.StaleRecordsError
	switch {
	case errors.As(err, &stale):
		resp.Message = "Skipped older records: " + strings.Join(stale.MemoryIDs, ", ")
	case err != nil:
		return statusResponse{}, err
	}
	return resp, nil
}

func (s *Server) deleteMemory(ctx context.Context, raw json.RawMessage) (string, error) {
	guildID, records, err := guildBatch(raw)
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.MemoryID != "" {
			ids = append(ids, rec.MemoryID)
		}
	}
	if len(ids) == 0 {
		return "", badRequest("No valid memory IDs provided")
	}

	err = s.memories.Delete(ctx, guildID, ids)
	switch {
	case errors.Is(err, core.ErrGuildNotFound):
		return "", &eventError{status: http.StatusNotFound, message: "Guild not found in memories"}
	case errors.Is(err, core.ErrMalformedState):
		return "", &eventError{status: http.StatusInternalServerError, message: "Failed to read memories file"}
	case err != nil:
		return "", err
	}
	return "memories deleted", nil
}

func (s *Server) updatePersonality(ctx context.Context, patch map[string]any) (string, error) {
	if len(patch) == 0 {
		return "", badRequest("Invalid personality format")
	}
	if err := s.persona.Merge(ctx, patch); err != nil {
		return "", badRequest(err.Error())
	}
	return "personality updated", nil
}

func (s *Server) updateConfig(ctx context.Context, patch json.RawMessage) (string, error) {
	if len(patch) == 0 || s.settings == nil {
		return "", badRequest("Invalid config format")
	}
	_, err := s.settings.UpdateSettings(ctx, patch)
	if errors.Is(err, core.ErrInvalidSettings) {
		return "", badRequest(err.Error())
	}
	if err != nil {
		return "", err
	}
	return "config updated", nil
}

func (s *Server) setActivation(ctx context.Context, req eventRequest) (string, error) {
	conv := strings.TrimSpace(req.ConversationID)
	if conv == "" || req.Active == nil {
		return "", badRequest("conversation_id and active are required")
	}
	if err := s.activation.SetActive(ctx, conv, *req.Active); err != nil {
		return "", err
	}
	return "activation updated", nil
}
