// Command interviewbot runs the scripted interview chatbot backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hrkit/interviewbot/chat"
	"github.com/hrkit/interviewbot/config"
	"github.com/hrkit/interviewbot/mcp"
	"github.com/hrkit/interviewbot/provider"
	"github.com/hrkit/interviewbot/server"
	"github.com/hrkit/interviewbot/session"
	"github.com/hrkit/interviewbot/tools"

	_ "github.com/hrkit/interviewbot/anthropic"
	_ "github.com/hrkit/interviewbot/openai"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	llm, err := provider.Get(cfg.LLM.Provider, provider.Settings{
		BaseURL: cfg.LLM.Endpoint,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	registry.Register(tools.ClockTool())

	faq, err := tools.OpenFAQStore(cfg.Tools.FAQDatabase)
	if err != nil {
		return err
	}
	defer faq.Close()
	registry.Register(faq.Tool())

	if cfg.Tools.DocsDir != "" {
		registry.Register(tools.DocsTool(cfg.Tools.DocsDir))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, mcpCfg := range cfg.MCPServers {
		client, err := mcp.Dial(ctx, mcpCfg.Command, mcpCfg.Arguments)
		if err != nil {
			return fmt.Errorf("connecting MCP server %q: %w", mcpCfg.Name, err)
		}
		defer client.Close()

		if err := client.RegisterTools(ctx, registry); err != nil {
			return fmt.Errorf("registering tools from MCP server %q: %w", mcpCfg.Name, err)
		}
		logger.Info("connected MCP server", "name", mcpCfg.Name)
	}
	logger.Info("tools ready", "names", registry.Names())

	orchestrator := chat.New(llm, registry,
		chat.WithModel(cfg.LLM.Model),
		chat.WithMaxTokens(cfg.LLM.MaxTokens),
	)

	srv := server.New(orchestrator, session.NewStore(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
