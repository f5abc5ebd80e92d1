package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/timeline"
)

var (
	verbose    bool
	adapter    string
	storeURI   string
	configPath string
	readOnly   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Rebuild semantically versioned change timelines from aspect version history",
	Long: `Timeline reads the per-aspect version history of an entity and reports every
meaningful change (tags, ownership, documentation, glossary terms, technical schema)
as a transaction with a computed semantic version.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "fs", "Store adapter (fs, sql, memory)")
	rootCmd.PersistentFlags().StringVar(&storeURI, "store", ".", "Store location: directory for fs, DSN for sql")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Registry file (default: nearest timeline.yaml, else built-in)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Reject writes to the store")
}

// openService builds the service from the persistent flags.
func openService() (*timeline.Service, error) {
	opts := []timeline.Option{
		timeline.WithAdapter(adapter),
		timeline.WithReadOnly(readOnly),
		timeline.WithLogger(slog.Default()),
	}

	path := configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, err := timeline.FindConfig(wd); err == nil {
				path = found
			}
		}
	}
	if path != "" {
		slog.Debug("using registry file", "path", path)
		opts = append(opts, timeline.WithConfigFile(path))
	}

	return timeline.New(storeURI, opts...)
}
