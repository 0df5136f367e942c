package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/bdragon300/incremental-rehash/dict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBenchReport(t *testing.T) {
	t.Run("report; should land on disk as valid json", func(t *testing.T) {
		dir := t.TempDir()
		rep := benchReport{
			ID:        "0c8e7a2e-test",
			Timestamp: time.Now().Format(time.RFC3339),
			GoVersion: runtime.Version(),
			Keys:      10,
			Results: []benchResult{
				{Name: "add", Operations: 10, NsPerOp: 120.5, OpsPerSec: 8300000},
			},
		}

		path, err := writeBenchReport(dir, rep)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "bench-0c8e7a2e-test.json"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var got benchReport
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, rep, got)
	})

	t.Run("unwritable directory; should fail", func(t *testing.T) {
		_, err := writeBenchReport(filepath.Join(t.TempDir(), "does", "not", "exist"), benchReport{ID: "x"})
		assert.Error(t, err)
	})
}

func TestRunBench(t *testing.T) {
	t.Run("small run; should leave existing data alone and write a report", func(t *testing.T) {
		dir := t.TempDir()
		d := dict.New(dict.StringType(1), nil)
		require.NoError(t, d.Add("keep", "me"))

		require.NoError(t, runBench(d, 50, dir))

		assert.Equal(t, 1, d.Len())
		require.NotNil(t, d.Find("keep"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "bench-"))
		assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
	})
}
