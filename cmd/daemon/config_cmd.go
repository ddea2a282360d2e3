// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/leavegate/internal/config"
	"gopkg.in/yaml.v3"
)

// configCLI implements `leavegate config ...`. Output goes to the injected
// writers so tests can capture it.
type configCLI struct {
	stdout, stderr io.Writer
}

func runConfigCLI(args []string) int {
	return configCLI{stdout: os.Stdout, stderr: os.Stderr}.run(args)
}

func (c configCLI) run(args []string) int {
	if len(args) == 0 {
		c.usage(c.stderr)
		return 2
	}
	switch args[0] {
	case "-h", "--help", "help":
		c.usage(c.stdout)
		return 0
	case "validate":
		return c.validate(args[1:])
	case "dump":
		return c.dump(args[1:])
	default:
		_, _ = fmt.Fprintf(c.stderr, "Unknown subcommand: %s\n\n", args[0])
		c.usage(c.stderr)
		return 2
	}
}

func (c configCLI) usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  leavegate config validate [-f config.yaml]")
	_, _ = fmt.Fprintln(w, "  leavegate config dump --effective [-f config.yaml] [--format yaml|json]")
}

// fileFlag registers --file/-f and returns a resolver that falls back to
// the config.yaml in the data dir.
func fileFlag(fs *flag.FlagSet) func() string {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "shorthand for --file")
	return func() string {
		if p := strings.TrimSpace(file); p != "" {
			return p
		}
		return resolveDefaultConfigPath()
	}
}

func (c configCLI) load(path string) (config.AppConfig, bool) {
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		where := path
		if where == "" {
			where = "environment"
		}
		_, _ = fmt.Fprintf(c.stderr, "Configuration error in %s:\n  %v\n", where, err)
		if fields := config.InvalidFields(err); len(fields) > 0 {
			_, _ = fmt.Fprintf(c.stderr, "Fix: %s\n", strings.Join(fields, ", "))
		}
		return cfg, false
	}
	return cfg, true
}

func (c configCLI) validate(args []string) int {
	fs := flag.NewFlagSet("leavegate config validate", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	path := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p := path()
	if p == "" {
		_, _ = fmt.Fprintf(c.stderr, "Error: --file is required (no config.yaml under $%sDATA_DIR)\n", config.EnvPrefix)
		return 2
	}
	cfg, ok := c.load(p)
	if !ok {
		return 1
	}
	_, _ = fmt.Fprintf(c.stdout, "%s is valid (store=%s, otp=%s, sessions=%s, parent gate=%s)\n",
		p, cfg.Store.Backend, cfg.OTP.Backend, cfg.Session.Backend, cfg.Policy.ParentGate.Mode)
	return 0
}

func (c configCLI) dump(args []string) int {
	fs := flag.NewFlagSet("leavegate config dump", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	path := fileFlag(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	effective := fs.Bool("effective", false, "dump the merged configuration (defaults, file, env)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !*effective {
		_, _ = fmt.Fprintln(c.stderr, "Error: --effective is required")
		return 2
	}

	// No file is fine: defaults plus environment is still an effective config.
	cfg, ok := c.load(path())
	if !ok {
		return 1
	}
	redactSecrets(&cfg)

	if err := encodeConfig(c.stdout, cfg, *format); err != nil {
		_, _ = fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func encodeConfig(w io.Writer, cfg config.AppConfig, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}

// redactSecrets masks credentials before the config is printed.
func redactSecrets(cfg *config.AppConfig) {
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
	if cfg.OTP.DevCode != "" {
		cfg.OTP.DevCode = "***"
	}
}
