package main

import (
	"context"
	"fmt"
	"log/slog"

	"content-crew/internal/adapter/store"
	"content-crew/internal/adapter/tool"
	"content-crew/internal/adapter/wavespeed"
	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
	"content-crew/internal/infra/logger"
	"content-crew/internal/infra/tracer"
	"content-crew/internal/security"
	"content-crew/internal/usecase"
	"content-crew/internal/usecase/crew"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	llm   *LLMComponents
	tools *tool.Registry
	crew  *crew.Crew
	store *store.SQLiteRunStore // nil when run history is disabled

	cleanups []func(context.Context) error
}

// bootstrap loads the config and wires logging, tracing, LLM providers,
// tools, the crew and the run store. keepStdout forces logs away from
// stdout for commands that own it.
func bootstrap(ctx context.Context, args []string, keepStdout bool) (*app, error) {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &app{cfg: cfg}

	var logOpts []logger.Option
	if keepStdout {
		logOpts = append(logOpts, logger.WithStdoutReserved())
	}
	log, logCloser, err := logger.New(cfg.Logger, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.cleanups = append(a.cleanups, func(context.Context) error { return logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.cleanups = append(a.cleanups, tracerShutdown)

	if a.llm, err = initLLM(cfg, log); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("llm: %w", err)
	}

	if a.tools, err = initTools(cfg, a.llm.DefaultLLM, log); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("tools: %w", err)
	}

	if a.crew, err = crew.Build(crew.Mode(cfg.Crew.Delegation)); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("crew: %w", err)
	}
	if err := a.crew.ValidateModels(cfg.Crew.Models); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("crew: %w", err)
	}

	if cfg.Store.Enabled {
		if a.store, err = store.NewSQLiteRunStore(cfg.Store.Path); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("store: %w", err)
		}
		s := a.store
		a.cleanups = append(a.cleanups, func(context.Context) error { return s.Close() })
	}

	log.Info("content-crew initialized",
		"provider", cfg.LLM.DefaultProvider,
		"delegation", cfg.Crew.Delegation,
		"tools", a.tools.Len(),
		"store", cfg.Store.Enabled,
	)
	return a, nil
}

// initTools builds the content tool registry with its filesystem, HTTP,
// image and search backends.
func initTools(cfg *config.Config, llm domain.LLMProvider, log *slog.Logger) (*tool.Registry, error) {
	var sandbox *security.Sandbox
	if cfg.Tools.SandboxRoot != "" {
		sb, err := security.NewSandbox(cfg.Tools.SandboxRoot)
		if err != nil {
			return nil, fmt.Errorf("sandbox: %w", err)
		}
		sandbox = sb
		log.Info("tool sandbox enabled", "root", sb.Root())
	}

	out, err := tool.NewFilesystemBackend(cfg.Tools.FilesystemBackend, sandbox)
	if err != nil {
		return nil, err
	}
	log.Debug("output filesystem ready", "backend", out.Name())

	search, err := tool.NewSearchBackend(cfg.Tools, llm, log)
	if err != nil {
		return nil, err
	}

	images := wavespeed.NewClient(cfg.WaveSpeed, log)
	if !images.HasKey() {
		log.Warn("WAVESPEED_API_KEY is not set, image tools will report an error")
	}

	reg := tool.NewRegistry(log)
	err = tool.RegisterContentTools(reg, cfg.Tools, tool.Deps{
		FS:     out,
		HTTP:   security.NewSafeClient(cfg.Tools.DownloadTimeout, cfg.Tools.AllowPrivateURLs),
		Images: images,
		Search: search,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// newRunner creates a runner over the crew reporting through hooks.
func (a *app) newRunner(hooks domain.RunHooks) (*usecase.Runner, error) {
	if err := a.crew.ValidateTools(a.tools); err != nil {
		return nil, fmt.Errorf("crew: %w", err)
	}

	deps := usecase.RunnerDeps{
		LLM:             a.llm.DefaultLLM,
		Tools:           a.tools,
		Agents:          a.crew,
		Logger:          a.log,
		Hooks:           hooks,
		MaxTurns:        a.cfg.Crew.MaxTurns,
		ContextMessages: a.cfg.Crew.ContextMessages,
		Models:          a.cfg.Crew.Models,
		SubAgent: usecase.SubAgentConfig{
			MaxConcurrent: a.cfg.Crew.SubAgent.MaxConcurrent,
			MaxTurns:      a.cfg.Crew.SubAgent.MaxTurns,
			Timeout:       a.cfg.Crew.SubAgent.Timeout,
		},
		TraceMetadata: a.cfg.Crew.TraceMetadata,
	}
	if a.store != nil {
		deps.Store = a.store
	}
	return usecase.NewRunner(deps), nil
}

// close runs the cleanups in reverse order.
func (a *app) close(ctx context.Context) {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](ctx); err != nil && a.log != nil {
			a.log.Error("cleanup error", "error", err)
		}
	}
	a.cleanups = nil
}
