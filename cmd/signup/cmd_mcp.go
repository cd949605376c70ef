package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/signup/internal/api"
	"github.com/felixgeelhaar/signup/internal/config"
	mcpserver "github.com/felixgeelhaar/signup/internal/mcp"
	"github.com/felixgeelhaar/signup/internal/password"
	"github.com/felixgeelhaar/signup/internal/token"
	"github.com/felixgeelhaar/signup/internal/user"
)

// cmdMCP starts the MCP server on stdio
func cmdMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := api.OpenStore(ctx, cfg, stderrLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	tokens, err := token.NewManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	if err != nil {
		return err
	}

	srv := mcpserver.NewServer(mcpserver.Config{
		Version: Version,
		Tokens:  tokens,
		Users:   user.NewDirectory(store, password.NewBcrypt(cfg.BcryptCost)),
	})

	return srv.ServeStdio(ctx)
}
