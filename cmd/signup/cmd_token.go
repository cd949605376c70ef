package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/signup/internal/config"
	"github.com/felixgeelhaar/signup/internal/token"
)

func cmdToken(args []string, w io.Writer) error {
	if len(args) < 2 {
		return errors.New("usage: signup token inspect|verify <jwt>")
	}

	switch args[0] {
	case "inspect":
		return inspectToken(args[1], w)
	case "verify":
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		tokens, err := token.NewManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
		if err != nil {
			return err
		}
		return verifyToken(tokens, args[1], w)
	default:
		return fmt.Errorf("unknown token command: %s", args[0])
	}
}

func inspectToken(raw string, w io.Writer) error {
	claims, ok := token.Decode(raw)
	if !ok {
		return errors.New("not a decodable JWT")
	}
	fmt.Fprintln(w, "WARNING: signature and expiry NOT verified")
	return writeJSON(w, claims)
}

func verifyToken(tokens *token.Manager, raw string, w io.Writer) error {
	claims, err := tokens.Verify(raw)
	if err != nil {
		return err
	}
	return writeJSON(w, claims)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
