// Package main is the entry point for the easel workbench runner.
//
// It loads a canvas document, runs designer extensions against it, and
// writes the edited document back out, optionally with a history
// export. It is the headless counterpart to the visual workbench: the
// same session, history log, and extension host, driven in one pass.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/easelhq/easel/internal/config"
	"github.com/easelhq/easel/internal/editor"
	"github.com/easelhq/easel/internal/extension"
	"github.com/easelhq/easel/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	DocPath    string
	ExtDir     string
	ScriptPath string
	OutPath    string
	ExportPath string
	LogLevel   string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: os.Stderr,
		Prefix: cfg.Logging.Prefix,
	})

	sess := editor.NewSession(
		editor.WithCapacity(cfg.History.Capacity),
		editor.WithLogger(logger.WithComponent("editor")),
	)
	if cfg.Canvas.MaxElements > 0 {
		sess.SetDocumentLimit(cfg.Canvas.MaxElements)
	}

	if opts.DocPath != "" {
		data, err := os.ReadFile(opts.DocPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read document: %v\n", err)
			return 1
		}
		if err := sess.LoadDocument(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load document: %v\n", err)
			return 1
		}
		logger.Info("document loaded: %s", opts.DocPath)
	}

	host, err := extension.NewHost(sess,
		extension.WithLogger(logger.WithComponent("extension")),
		extension.WithTimeout(cfg.ExtensionTimeout()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start extension host: %v\n", err)
		return 1
	}
	defer host.Close()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		fmt.Fprintln(os.Stderr, "interrupted")
		host.Close()
		os.Exit(1)
	}()

	extDir := opts.ExtDir
	if extDir == "" {
		extDir = cfg.Extensions.Dir
	}
	if err := loadExtensions(host, cfg, extDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.ScriptPath != "" {
		if err := host.LoadFile(opts.ScriptPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	host.Flush()

	sum := sess.HistorySummary()
	logger.Info("run complete: %d changes recorded", sum.Entries)

	if err := writeOutputs(sess, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadExtensions loads the enabled extensions from dir, or every .lua
// file in it when no enabled list is configured.
func loadExtensions(host *extension.Host, cfg *config.Config, dir string) error {
	if dir == "" {
		return nil
	}
	if len(cfg.Extensions.Enabled) > 0 {
		for _, name := range cfg.Extensions.Enabled {
			if err := host.LoadFile(filepath.Join(dir, name+".lua")); err != nil {
				return err
			}
		}
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Nothing to load; the default dir need not exist.
		return nil
	}
	return host.LoadDir(dir)
}

// writeOutputs writes the edited document (to -out, or stdout when a
// document was loaded) and the optional history export.
func writeOutputs(sess *editor.Session, opts options) error {
	if opts.OutPath != "" || opts.DocPath != "" {
		data, err := sess.DocumentBytes()
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		if opts.OutPath == "" {
			fmt.Println(string(data))
		} else if err := os.WriteFile(opts.OutPath, data, 0o644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
	}

	if opts.ExportPath != "" {
		data, err := sess.ExportHistory()
		if err != nil {
			return fmt.Errorf("export history: %w", err)
		}
		if err := os.WriteFile(opts.ExportPath, data, 0o644); err != nil {
			return fmt.Errorf("write history export: %w", err)
		}
	}
	return nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "easel.toml", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "easel.toml", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.DocPath, "doc", "", "Canvas document to load")
	flag.StringVar(&opts.ExtDir, "ext", "", "Extensions directory (overrides config)")
	flag.StringVar(&opts.ScriptPath, "script", "", "Extra extension script to run last")
	flag.StringVar(&opts.OutPath, "out", "", "Where to write the edited document (default stdout)")
	flag.StringVar(&opts.ExportPath, "export", "", "Where to write the history export")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Easel - headless canvas workbench\n\n")
		fmt.Fprintf(os.Stderr, "Usage: easel [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  easel -doc page.json -ext ./extensions -out page.out.json\n")
		fmt.Fprintf(os.Stderr, "  easel -doc page.json -script fixup.lua\n")
		fmt.Fprintf(os.Stderr, "  easel -doc page.json -export history.json\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Easel %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		switch opts.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
			os.Exit(1)
		}
	}

	return opts
}
