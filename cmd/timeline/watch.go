package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/timeline"
	"github.com/aretw0/timeline/pkg/adapters/fs"
	changesource "github.com/aretw0/timeline/pkg/adapters/lifecycle"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print aspect versions changed in an fs store by other processes",
	Long: `Watch the fs store directory and print one line per aspect version file
that is created, rewritten or removed, until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adapter != "fs" {
			return fmt.Errorf("watch requires the fs adapter, got %s", adapter)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := timeline.Open(storeURI,
			timeline.WithAdapter(adapter),
			timeline.WithMustExist(true),
			timeline.WithReadOnly(readOnly),
			timeline.WithLogger(slog.Default()),
			timeline.WithWatch(true),
		)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		fsStore := store.(*fs.Store)
		defer fsStore.Close()

		src := changesource.NewSource(fsStore.Changes())
		if err := src.Start(ctx); err != nil {
			return err
		}
		slog.Info("watching store", "path", fsStore.Path)

		for e := range src.Events() {
			fmt.Fprintln(cmd.OutOrStdout(), e.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
