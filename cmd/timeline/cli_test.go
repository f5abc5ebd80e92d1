package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliEntity = "urn:li:dataset:(urn:li:dataPlatform:hive,orders,PROD)"

// execute runs the root command in-process and returns what it printed.
// Flag variables are package globals, so they are reset before each run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, adapter, storeURI, configPath, readOnly = false, "fs", ".", "", false
	recordAt, getStart, getEnd, getRawDiff, getEntityType = "", "", "", false, "dataset"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writePayload(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCLI_RecordAndGet(t *testing.T) {
	store := filepath.Join(t.TempDir(), "history")
	payloads := t.TempDir()
	registry := writePayload(t, payloads, "timeline.yaml", `
lookback: 24h
entities:
  dataset:
    TAG:
      - aspect: globalTags
        differ: generic
`)
	common := []string{"--adapter", "fs", "--store", store, "--config", registry}

	first := writePayload(t, payloads, "tags-1.yaml", "tags:\n  - tag: urn:li:tag:pii\n")
	out, err := execute(t, append([]string{"record", cliEntity, "globalTags", first, "--at", "1709294400000"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(first version)")

	second := writePayload(t, payloads, "tags-2.json", `{"tags":[{"tag":"urn:li:tag:pii"},{"tag":"urn:li:tag:gold"}]}`)
	out, err = execute(t, append([]string{"record", cliEntity, "globalTags", second, "--at", "1709298000000"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(previous version archived as 1)")

	out, err = execute(t, append([]string{"get", cliEntity, "--start", "0", "--end", "2024-03-02T00:00:00Z"}, common...)...)
	require.NoError(t, err)

	var txs []struct {
		SemVer     string `json:"semVer"`
		ChangeType string `json:"changeType"`
		Aspect     string `json:"aspect"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &txs), out)
	require.Len(t, txs, 2)
	assert.Equal(t, "0.0.0-computed", txs[0].SemVer)
	assert.Equal(t, "CREATE", txs[0].ChangeType)
	assert.Equal(t, "0.1.0-computed", txs[1].SemVer)
	assert.Equal(t, "globalTags", txs[1].Aspect)

	out, err = execute(t, append([]string{"categories"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "dataset")
	assert.Contains(t, out, "globalTags")
}

func TestCLI_ReadOnlyRejectsRecord(t *testing.T) {
	store := t.TempDir()
	payload := writePayload(t, t.TempDir(), "tags.json", `{"tags":[]}`)

	_, err := execute(t, "record", cliEntity, "globalTags", payload, "--adapter", "fs", "--store", store, "--read-only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record aspect")
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "timeline version 0.1.0")
}
