// Command ttrender renders a single named template from a root directory
// against a JSON file of bindings and prints the result to stdout.
//
// Grounded on dalemusser-waffle/cmd/makewaffle/main.go's trivial-entrypoint
// style: main() does nothing but parse args/config and delegate, with the
// real work and exit-code decision living in one Run function (see
// SPEC_FULL.md §6.1).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/corvid-labs/templex"
	"github.com/corvid-labs/templex/config"
	"github.com/corvid-labs/templex/logging"
	"go.uber.org/zap"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

// Run parses flags, renders the requested template, and returns a process
// exit code. os.Args[1:] is read directly by pflag inside config.Load, so
// args is unused beyond documenting the entrypoint's contract.
func Run(args []string) int {
	boot := logging.Bootstrap()
	defer boot.Sync()

	cfg, err := config.Load(boot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logger, err := logging.Build(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: building logger:", err)
		return 1
	}
	defer logger.Sync()

	kwargs, err := loadData(cfg.Data)
	if err != nil {
		logger.Error("failed to load data file", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	opts := []templex.Option{}
	if cfg.Autoescape == "none" || cfg.Autoescape == "None" {
		opts = append(opts, templex.WithAutoescapeNone())
	} else if cfg.Autoescape != "" {
		opts = append(opts, templex.WithAutoescape(cfg.Autoescape))
	}
	if mode, ok := parseWhitespaceFlag(cfg.Whitespace); ok {
		opts = append(opts, templex.WithWhitespace(mode))
	}

	ld := templex.NewFSLoader(cfg.Root, opts...)
	out, err := templex.Get(ld, cfg.Template).Generate(kwargs)
	if err != nil {
		var ce *templex.CompileError
		if errors.As(err, &ce) {
			logging.LogCompileError(logger, ce)
		} else {
			logger.Error("render failed", zap.String("template", cfg.Template), zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	if _, err := os.Stdout.Write(out); err != nil {
		fmt.Fprintln(os.Stderr, "error writing output:", err)
		return 1
	}
	return 0
}

func loadData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file %q: %w", path, err)
	}
	var kwargs map[string]interface{}
	if err := json.Unmarshal(b, &kwargs); err != nil {
		return nil, fmt.Errorf("parsing data file %q as JSON: %w", path, err)
	}
	return kwargs, nil
}

// parseWhitespaceFlag adapts cfg.Whitespace's "" / "all" / "single" /
// "oneline" flag value to a templex.WhitespaceMode, leaving the
// per-template default in place when the flag was not supplied.
func parseWhitespaceFlag(s string) (templex.WhitespaceMode, bool) {
	switch s {
	case "all":
		return templex.WhitespaceAll, true
	case "single":
		return templex.WhitespaceSingle, true
	case "oneline":
		return templex.WhitespaceOneline, true
	default:
		return templex.WhitespaceAll, false
	}
}
