package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/chamber-ai/william/src/config"
	"github.com/chamber-ai/william/src/server"
	"github.com/chamber-ai/william/src/storage"
)

// ServeCmd runs the websocket backend.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
}

func (cmd *ServeCmd) Run(cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	store, err := storage.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		namer    server.Namer
		embedder server.Embedder
	)
	if cfg.Keys.OpenAI != "" {
		namer = server.NewOpenAINamer(cfg.Keys.OpenAI)
		embedder = server.NewOpenAIEmbedder(cfg.Keys.OpenAI)
	}

	srv := server.New(server.Config{
		Store: store,
		Streamer: server.NewProviderStreamer(server.ProviderKeys{
			OpenAI:    cfg.Keys.OpenAI,
			Groq:      cfg.Keys.Groq,
			Anthropic: cfg.Keys.Anthropic,
		}, logger),
		Namer:    namer,
		Embedder: embedder,
		Prompts:  server.NewPromptStore(afero.NewOsFs(), cfg.Storage.DataDir),
		Logger:   logger,
	})

	logger.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, srv)
}
