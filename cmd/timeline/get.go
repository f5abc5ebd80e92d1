package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/timeline"
	"github.com/aretw0/timeline/pkg/core"
)

var (
	getEntityType string
	getCategories []string
	getStart      string
	getEnd        string
	getRawDiff    bool
)

var getCmd = &cobra.Command{
	Use:   "get [entity-id]",
	Short: "Print the change timeline of an entity as JSON",
	Long: `Print the change transactions of an entity within a time window.
Times accept RFC 3339 or epoch milliseconds. Without --start the window
starts one lookback period before --end (default: now).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := timeline.Request{
			EntityType:      getEntityType,
			EntityID:        args[0],
			StartTimeMillis: timeline.UnspecifiedStart,
			IncludeRawDiff:  getRawDiff,
		}
		for _, c := range getCategories {
			req.Categories = append(req.Categories, core.ParseCategory(c))
		}

		var err error
		if getStart != "" {
			if req.StartTimeMillis, err = parseMillis(getStart); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
		}
		if getEnd != "" {
			if req.EndTimeMillis, err = parseMillis(getEnd); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
		}

		svc, err := openService()
		if err != nil {
			return fmt.Errorf("failed to initialize timeline: %w", err)
		}
		defer svc.Close()

		if len(req.Categories) == 0 {
			req.Categories = svc.Categories().Categories(req.EntityType)
		}

		txs, err := svc.GetTimeline(context.Background(), req)
		if err != nil {
			return fmt.Errorf("failed to build timeline: %w", err)
		}
		if txs == nil {
			txs = []timeline.ChangeTransaction{}
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(txs)
	},
}

// parseMillis accepts RFC 3339 timestamps or epoch milliseconds.
func parseMillis(v string) (int64, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, fmt.Errorf("expected RFC 3339 or epoch milliseconds, got %q", v)
	}
	return t.UnixMilli(), nil
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringVarP(&getEntityType, "entity-type", "t", "dataset", "Entity type")
	getCmd.Flags().StringSliceVar(&getCategories, "category", nil, "Categories to include (default: all registered)")
	getCmd.Flags().StringVar(&getStart, "start", "", "Window start")
	getCmd.Flags().StringVar(&getEnd, "end", "", "Window end")
	getCmd.Flags().BoolVar(&getRawDiff, "raw-diff", false, "Attach the JSON Patch operations to each event")
}
