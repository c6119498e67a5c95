// Package resources implements the MCP resource handlers.
//
// Resources provide read-only data the host can pull for context. They
// use URI-based addressing (noted://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/notedaemon/noted/internal/config"
	"github.com/notedaemon/noted/internal/store"
)

// Handler serves the noted resource endpoints.
type Handler struct {
	store *store.Store
	cfg   *config.Config
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(st *store.Store, cfg *config.Config) *Handler {
	return &Handler{store: st, cfg: cfg}
}

// StatsResource returns the MCP resource definition for store statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"noted://stats",
		"Notification Statistics",
		mcp.WithResourceDescription("Store totals, level split, busiest apps, and the extraction watermark"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the current store statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ConfigResource returns the MCP resource definition for the active
// configuration.
func (h *Handler) ConfigResource() mcp.Resource {
	return mcp.NewResource(
		"noted://config",
		"Active Configuration",
		mcp.WithResourceDescription("The effective noted configuration after file and environment overrides"),
		mcp.WithMIMEType("application/yaml"),
	)
}

// HandleConfig returns the active configuration rendered as YAML.
func (h *Handler) HandleConfig(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := yaml.Marshal(h.cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}
