package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/timeline"
)

var recordAt string

var recordCmd = &cobra.Command{
	Use:   "record [entity-id] [aspect] [file]",
	Short: "Record a new version of an aspect",
	Long: `Record the content of a JSON or YAML file ("-" reads JSON from stdin) as the
new current version of an aspect. The previous current version is archived
under the next free version number.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		entityID, aspect, file := args[0], args[1], args[2]

		payload, err := readPayload(file)
		if err != nil {
			return err
		}

		at := time.Now()
		if recordAt != "" {
			ms, err := parseMillis(recordAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			at = time.UnixMilli(ms)
		}

		svc, err := openService()
		if err != nil {
			return fmt.Errorf("failed to initialize timeline: %w", err)
		}
		defer svc.Close()

		writer, ok := svc.Store().(timeline.AspectWriter)
		if !ok {
			return fmt.Errorf("adapter %s does not accept writes", adapter)
		}

		archived, err := writer.PutAspect(context.Background(), entityID, aspect, payload, at)
		if err != nil {
			return fmt.Errorf("failed to record aspect: %w", err)
		}

		if archived > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s/%s (previous version archived as %d)\n", entityID, aspect, archived)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s/%s (first version)\n", entityID, aspect)
		}
		return nil
	},
}

// readPayload returns the file content as JSON, converting YAML input.
func readPayload(file string) ([]byte, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid yaml payload: %w", err)
		}
		return json.Marshal(v)
	default:
		return data, nil
	}
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordAt, "at", "", "Creation time (RFC 3339 or epoch milliseconds, default: now)")
}
