package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/setlog/internal/training"
	"github.com/mark3labs/mcp-go/mcp"
)

const recentWindow = 14 * 24 * time.Hour

func (h *handlers) recentSets(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now().UTC()
	entries, err := h.ds.ListEntries(ctx, training.Query{
		UserID: UserIDFromContext(ctx),
		Start:  end.Add(-recentWindow),
		End:    end,
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []training.Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
