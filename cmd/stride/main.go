package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/stridebuild/stride/pkg/config"
	"github.com/stridebuild/stride/pkg/logging"
	"github.com/stridebuild/stride/pkg/output"
	"github.com/stridebuild/stride/pkg/pipeline"
	"github.com/stridebuild/stride/pkg/runner"
	"github.com/stridebuild/stride/pkg/watcher"
	"github.com/stridebuild/stride/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("stride", pflag.ExitOnError)
	flags.String("workspace", ".", "Path to the workspace root")
	flags.String("pipeline", "stride.toml", "Pipeline definition file, relative to the workspace")
	flags.Bool("watch", false, "Re-run the pipeline when declared inputs change")
	flags.Bool("web", false, "Serve pipeline status over HTTP")
	flags.Int("port", 8080, "Port for the status server (only used with --web)")
	flags.String("verbosity", "info", "Log level: debug, info, warn, error")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	setupLogging(cfg)

	pipelinePath := cfg.Pipeline
	if !filepath.IsAbs(pipelinePath) {
		pipelinePath = filepath.Join(cfg.Workspace, pipelinePath)
	}
	p, err := pipeline.Load(pipelinePath)
	if err != nil {
		logging.Fatal("could not load pipeline", "error", err)
	}

	run := runner.New(cfg.Workspace, runner.NewExecutor())

	var server *web.Server
	if cfg.WebMode {
		server = web.NewServer()
		server.SetPipeline(p)
		run.SetPublisher(server.Publisher())
		go func() {
			if err := server.Start(cfg.Port); err != nil {
				logging.Fatal("web server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() bool {
		if server != nil {
			server.PublishStatus("running", "pipeline run started", 0, len(p.Tasks))
		}
		results, runErr := run.RunPipeline(ctx, p)
		if server != nil {
			for _, result := range results {
				server.RecordResult(result)
			}
			state := "done"
			if runErr != nil {
				state = "failed"
			}
			server.PublishStatus(state, "pipeline run finished", len(results), len(p.Tasks))
		}
		output.PrintRunReport(p.Name, results)
		if runErr != nil {
			logging.Error("pipeline run failed", "error", runErr)
			return false
		}
		return true
	}

	ok := runOnce()

	if cfg.Watch {
		watchLoop(ctx, cfg, p, server, runOnce)
	} else if !ok {
		os.Exit(1)
	}
}

func watchLoop(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, server *web.Server, runOnce func() bool) {
	iw, err := watcher.NewInputWatcher(cfg.Workspace, p)
	if err != nil {
		logging.Fatal("could not create watcher", "error", err)
	}
	if err := iw.Start(ctx); err != nil {
		logging.Fatal("could not start watcher", "error", err)
	}

	debouncer := watcher.NewDebouncer(iw.Events(), 200*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	if server != nil {
		server.PublishStatus("watching", "waiting for input changes", len(p.Tasks), len(p.Tasks))
	}
	logging.Info("watch mode active, press Ctrl-C to stop")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-debouncer.Output():
			if !ok {
				return
			}
			logging.Info("inputs changed, re-running pipeline", "paths", len(event.Paths))
			runOnce()
			if server != nil {
				server.PublishStatus("watching", "waiting for input changes", len(p.Tasks), len(p.Tasks))
			}
		}
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Verbosity {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}
