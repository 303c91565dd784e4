package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/reinhart/sqlagent/internal/assistant"
	"github.com/reinhart/sqlagent/internal/configuration"
	"github.com/reinhart/sqlagent/internal/logger"
	"github.com/reinhart/sqlagent/internal/nouns"
	"github.com/reinhart/sqlagent/internal/safety"
	"github.com/reinhart/sqlagent/internal/sqltools"
	"github.com/reinhart/sqlagent/internal/store"
	"github.com/reinhart/sqlagent/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load Configuration
	cfg, loadedPath, err := configuration.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	// Initialize Logger
	logger.Init()
	if cfg.Agent.Debug {
		logger.DebugMode = true
	}

	// If DEBUG is set, redirect logs to file immediately so we catch early init issues
	if logger.DebugMode {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			fmt.Println("fatal: could not open debug.log:", err)
			return 1
		}
		defer f.Close()
		logger.SetOutput(f)
		logger.Debug("Logger initialized")
	}
	defer logger.Sync()

	if loadedPath != "" {
		logger.Info("Loaded config from %s", loadedPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engines, err := buildProviders(ctx, cfg)
	if err != nil {
		if !errors.Is(err, errMissingKey) {
			fmt.Printf("Error: %v\n", err)
		}
		return 1
	}
	defer engines.close()

	agent, closeAgent, err := buildAgent(ctx, cfg, engines)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer closeAgent()

	// A question on the command line is answered once without the UI
	if len(args) > 0 {
		answer, err := agent.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		fmt.Println(ui.RenderMarkdown(answer, 100))
		return 0
	}

	p := tea.NewProgram(ui.NewModel(agent), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running SQLAgent: %v\n", err)
		return 1
	}
	return 0
}

// buildAgent wires the store, the guard, the optional noun index, and the
// tools into an agent. The returned func releases the embedding cache.
func buildAgent(ctx context.Context, cfg *configuration.Config, engines *providers) (*assistant.Agent, func(), error) {
	closer := func() {}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		return nil, closer, fmt.Errorf("database %s: %w", cfg.Database.Path, err)
	}
	db := store.New(cfg.Database.Path, cfg.Database.ReadOnly)

	var index *nouns.Index
	if len(cfg.Nouns.Queries) > 0 {
		opts := nouns.Options{Model: engines.embeddingModel}
		if emb, ok := assistant.EmbedderOf(engines.chat); ok {
			opts.Embedder = emb
		}
		if opts.Embedder != nil && cfg.Nouns.CachePath != "" {
			cache, err := nouns.OpenCache(cfg.Nouns.CachePath)
			if err != nil {
				return nil, closer, err
			}
			opts.Cache = cache
			closer = func() { _ = cache.Close() }
		}

		var err error
		index, err = nouns.Build(ctx, db, cfg.Nouns.Queries, opts)
		if err != nil {
			closer()
			return nil, func() {}, fmt.Errorf("building proper-noun index: %w", err)
		}
		logger.Info("Indexed %d proper nouns (semantic: %t)", index.Len(), opts.Embedder != nil)
	}

	ts := sqltools.Toolset{
		Store:      db,
		Guard:      safety.NewGuard(cfg.Database.ReadOnly),
		Checker:    engines.checker,
		Nouns:      index,
		Dialect:    cfg.Database.Dialect,
		MaxRows:    cfg.Database.MaxRows,
		SampleRows: cfg.Database.SampleRows,
		TopK:       cfg.Nouns.TopK,
	}
	registry, err := assistant.NewToolRegistry(ts.Tools()...)
	if err != nil {
		closer()
		return nil, func() {}, err
	}

	opts := assistant.AgentOptions{
		SystemPrompt:  sqltools.SystemPrompt(cfg.Database.Dialect, cfg.Agent.ResultLimit, index != nil),
		MaxIterations: cfg.Agent.MaxIterations,
	}
	if cfg.Agent.RequireSchema {
		opts.SchemaGate = &assistant.SchemaGate{
			Inspect: sqltools.DescribeTablesName,
			Guarded: []string{sqltools.QueryName},
		}
	}
	return assistant.NewAgent(engines.chat, registry, opts), closer, nil
}
