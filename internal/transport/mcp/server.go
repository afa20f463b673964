// Package mcp exposes the memory store as MCP tools, so an operator's agent
// can curate memories over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

type Server struct {
	memories core.MemoryStore
	mcp      *mcpserver.MCPServer
	now      func() time.Time
}

func New(memories core.MemoryStore, version string) *Server {
	s := &Server{
		memories: memories,
		mcp:      mcpserver.NewMCPServer("muse-memories", version, mcpserver.WithToolCapabilities(false)),
		now:      time.Now,
	}

	s.mcp.AddTool(mcpproto.NewTool("memory_list",
		mcpproto.WithDescription("List stored memories. Without guild_id every guild is returned."),
		mcpproto.WithString("guild_id", mcpproto.Description("Guild (chat) to list")),
	), s.handleList)

	s.mcp.AddTool(mcpproto.NewTool("memory_upsert",
		mcpproto.WithDescription("Add or replace memories of one guild. A memory is recalled when a message resembles its special_phrase."),
		mcpproto.WithString("guild_id", mcpproto.Required(), mcpproto.Description("Guild (chat) the memories belong to")),
		mcpproto.WithArray("memories", mcpproto.Required(),
			mcpproto.Description("Records; memory_id and timestamp are generated when missing"),
			mcpproto.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"memory_id":      map[string]any{"type": "string"},
					"special_phrase": map[string]any{"type": "string"},
					"memory":         map[string]any{"type": "string"},
					"timestamp":      map[string]any{"type": "integer"},
				},
				"required": []string{"special_phrase", "memory"},
			}),
		),
	), s.handleUpsert)

	s.mcp.AddTool(mcpproto.NewTool("memory_delete",
		mcpproto.WithDescription("Delete memories of one guild by id."),
		mcpproto.WithString("guild_id", mcpproto.Required(), mcpproto.Description("Guild (chat) the memories belong to")),
		mcpproto.WithArray("memory_ids", mcpproto.Required(), mcpproto.Items(map[string]any{"type": "string"})),
	), s.handleDelete)

	return s
}

// Serve blocks answering requests read from in until ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	log.FromCtx(ctx).Info().Msg("serving memory tools over stdio")
	return mcpserver.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleList(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	guildID := strings.TrimSpace(req.GetString("guild_id", ""))

	var out any
	if guildID == "" {
		all, err := s.memories.All(ctx)
		if err != nil {
			return mcpproto.NewToolResultErrorFromErr("failed to read memories", err), nil
		}
		out = all
	} else {
		records, err := s.memories.Load(ctx, guildID)
		if err != nil {
			return mcpproto.NewToolResultErrorFromErr("failed to read memories", err), nil
		}
		out = records
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpproto.NewToolResultText(string(data)), nil
}

func (s *Server) handleUpsert(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	guildID, err := req.RequireString("guild_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	var records []core.MemoryRecord
	if err := decodeArg(req, "memories", &records); err != nil || len(records) == 0 {
		return mcpproto.NewToolResultError("memories must be a non-empty list of records"), nil
	}

	now := s.now().Unix()
	for i := range records {
		if records[i].MemoryID == "" {
			records[i].MemoryID = uuid.NewString()
		}
		if records[i].Timestamp == 0 {
			records[i].Timestamp = now
		}
	}

	msg := fmt.Sprintf("saved %d memories for guild %s", len(records), guildID)

	var stale *core.StaleRecordsError
	err = s.memories.Upsert(ctx, guildID, records)
	switch {
	case errors.As(err, &stale):
		msg += "; skipped older records: " + strings.Join(stale.MemoryIDs, ", ")
	case err != nil:
		return mcpproto.NewToolResultErrorFromErr("failed to save memories", err), nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.MemoryID
	}
	return mcpproto.NewToolResultText(msg + "\nids: " + strings.Join(ids, ", ")), nil
}

func (s *Server) handleDelete(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	guildID, err := req.RequireString("guild_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	var ids []string
	if err := decodeArg(req, "memory_ids", &ids); err != nil || len(ids) == 0 {
		return mcpproto.NewToolResultError("memory_ids must be a non-empty list"), nil
	}

	err = s.memories.Delete(ctx, guildID, ids)
	switch {
	case errors.Is(err, core.ErrGuildNotFound):
		return mcpproto.NewToolResultError("guild not found in memories"), nil
	case err != nil:
		return mcpproto.NewToolResultErrorFromErr("failed to delete memories", err), nil
	}
	return mcpproto.NewToolResultText(fmt.Sprintf("deleted %d memories from guild %s", len(ids), guildID)), nil
}

// decodeArg re-decodes one structured argument into v.
func decodeArg(req mcpproto.CallToolRequest, key string, v any) error {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return fmt.Errorf("missing %s", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
