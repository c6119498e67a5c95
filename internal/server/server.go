// Package server wires all MCP components and creates the server
// instance.
//
// This is the composition root: it opens the persisted store, builds the
// extractor, scorer, search executor, and watch service, and injects
// them into the tools/prompts/resources registered on the server. No
// business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/notedaemon/noted/internal/cluster"
	"github.com/notedaemon/noted/internal/config"
	"github.com/notedaemon/noted/internal/daemon"
	"github.com/notedaemon/noted/internal/prompts"
	"github.com/notedaemon/noted/internal/resources"
	"github.com/notedaemon/noted/internal/scoring"
	"github.com/notedaemon/noted/internal/search"
	"github.com/notedaemon/noted/internal/source"
	"github.com/notedaemon/noted/internal/store"
	"github.com/notedaemon/noted/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. When watch is true the extraction service
// starts immediately; otherwise it stays stopped until a
// noted_watch_start call.
//
// The returned cleanup function stops the watch service and closes the
// store. It is always non-nil and safe to call even when New fails.
func New(cfg *config.Config, watch bool) (*server.MCPServer, func(), error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}

	// --- Create shared dependencies ---

	svc := NewService(cfg, st)
	executor := search.New(st, search.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		CacheTTL:     cfg.CacheTTL(),
		CacheSize:    cfg.Search.CacheSize,
	})
	clusterCfg := cluster.Config{
		Window:  cfg.ClusterWindow(),
		MinSize: cfg.Cluster.MinSize,
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"noted",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register query tools ---

	recentTool := tools.NewRecentTool(st)
	s.AddTool(recentTool.Definition(), recentTool.Handle)

	searchTool := tools.NewSearchTool(executor)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	priorityTool := tools.NewPriorityTool(st)
	s.AddTool(priorityTool.Definition(), priorityTool.Handle)

	groupedTool := tools.NewGroupedTool(st, clusterCfg)
	s.AddTool(groupedTool.Definition(), groupedTool.Handle)

	statsTool := tools.NewStatsTool(st)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	digestTool := tools.NewDigestTool(st, clusterCfg)
	s.AddTool(digestTool.Definition(), digestTool.Handle)

	// --- Register management tools ---

	batchTool := tools.NewBatchTool(st)
	s.AddTool(batchTool.Definition(), batchTool.Handle)

	watchStart := tools.NewWatchStartTool(svc)
	s.AddTool(watchStart.Definition(), watchStart.Handle)

	watchStop := tools.NewWatchStopTool(svc)
	s.AddTool(watchStop.Definition(), watchStop.Handle)

	statusTool := tools.NewStatusTool(st, svc)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	// --- Register prompts ---

	triagePrompt := prompts.NewTriagePrompt()
	s.AddPrompt(triagePrompt.Definition(), triagePrompt.Handle)

	digestPrompt := prompts.NewDigestPrompt()
	s.AddPrompt(digestPrompt.Definition(), digestPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st, cfg)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)
	s.AddResource(resourceHandler.ConfigResource(), resourceHandler.HandleConfig)

	if watch {
		svc.Start()
	}
	cleanup := func() {
		svc.Stop()
		if err := st.Close(); err != nil {
			slog.Warn("store close", "error", err)
		}
	}
	return s, cleanup, nil
}

// NewService wires the extraction service: a Notification Center
// extractor feeding st through the scoring engine, tuned by cfg. The
// noted watch command uses it directly, without the MCP surface.
func NewService(cfg *config.Config, st *store.Store) *daemon.Service {
	scorer := scoring.New(scoring.Config{
		CriticalThreshold: cfg.Scoring.CriticalThreshold,
		HighThreshold:     cfg.Scoring.HighThreshold,
		MediumThreshold:   cfg.Scoring.MediumThreshold,
		DecayWindow:       cfg.DecayWindow(),
		BoostWindow:       cfg.BoostWindow(),
	})
	return daemon.New(source.NewExtractor(cfg.SourceDB), st, scorer, daemon.Config{
		Poll:        cfg.PollInterval(),
		BatchSize:   cfg.BatchSize,
		Retention:   cfg.Retention(),
		CleanupCron: cfg.CleanupCron,
	})
}

// noop is the cleanup returned on error paths, so callers can always
// defer the cleanup unconditionally.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use noted effectively.
func serverInstructions() string {
	return `You have access to noted, a macOS Notification Center MCP server.

## WHAT IT DOES

noted watches the macOS Notification Center database, copies new
notifications into its own store, scores them for priority, and exposes
query, digest, and batch tools over that store. Nothing here touches the
live system database except the read-only extraction snapshot.

## TYPICAL FLOWS

- "What did I miss?" -> noted_digest for the period, then noted_priority
  for anything that needs detail
- "Find X" -> noted_search with a natural-language query
- Inbox cleanup -> noted_priority or noted_recent, then noted_batch with
  the seq numbers shown in the listing
- Camera or message floods -> noted_grouped collapses bursts into
  clusters with one-line summaries

## SEARCH QUERY LANGUAGE

noted_search accepts plain keywords plus inline filters:
- time ranges: "today", "yesterday", "this week", "last month",
  "between 2 days ago and now"
- priority: "critical", "urgent", "important" (important = HIGH or above)
- apps: "from mail", "from messages", "from camera"
- exclusions: "but not standup", "except deliveries", "without vehicles"
- regex: "/ERR\d+/" (matched against title, subtitle, and body)
- grouping: "group by app", "group by hour", "group by day"
- sorting: "by priority" (default is newest first)

## BATCH SAFETY

noted_batch refuses an empty selection, so it can never sweep the whole
store by accident. Preview with dry_run=true before committing, always
for delete. Every committed batch returns a batch ID recorded in the
store's journal.

## WATCH SERVICE

Extraction only happens while the watch service runs (noted_watch_start,
or serving with --watch). noted_status shows the last cycle heartbeat;
if it is stale or "never", start the service before answering questions
about current notifications.`
}
