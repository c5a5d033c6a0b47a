// Package config loads ttrender's CLI configuration from pflag flags, in
// the style of dalemusser-waffle/config/config.go, scaled down to the
// handful of settings a template-rendering CLI actually needs (no viper
// dependency). An optional .env file is loaded into the process
// environment first, but no setting is read from the environment: every
// value comes from its flag or the flag's built-in default.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Config holds ttrender's resolved settings.
type Config struct {
	Root       string // template root directory
	Template   string // template name to render, relative to Root
	Data       string // path to a JSON file of render arguments, or "" for none
	Whitespace string // "", "all", "single", or "oneline" -- "" means per-template default
	Autoescape string // escape function name, or "none" to disable
	LogLevel   string
	Env        string // "dev" | "prod"
}

// Load parses command-line flags (after optionally loading a .env file)
// into a Config. pflag reads os.Args directly; the flag defaults are
// fixed and do not consult the environment the .env file populates.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info("loaded .env file")
	}

	root := pflag.String("root", ".", "template root directory")
	template := pflag.String("template", "", "template name to render, relative to root (required)")
	data := pflag.String("data", "", "path to a JSON file of render arguments")
	whitespace := pflag.String("whitespace", "", `whitespace mode override: "all", "single", or "oneline"`)
	autoescape := pflag.String("autoescape", "xhtml_escape", `default autoescape function, or "none" to disable`)
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error, dpanic, panic, fatal")
	env := pflag.String("env", "dev", `runtime environment "dev"|"prod"`)

	pflag.Parse()

	if *template == "" {
		return nil, fmt.Errorf("--template is required")
	}
	switch *whitespace {
	case "", "all", "single", "oneline":
	default:
		return nil, fmt.Errorf("--whitespace must be one of: all, single, oneline")
	}

	return &Config{
		Root:       *root,
		Template:   *template,
		Data:       *data,
		Whitespace: *whitespace,
		Autoescape: *autoescape,
		LogLevel:   *logLevel,
		Env:        *env,
	}, nil
}
