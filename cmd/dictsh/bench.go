package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bdragon300/incremental-rehash/dict"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// benchResult is one timed pass over the dictionary.
type benchResult struct {
	Name       string  `json:"name"`
	Operations int     `json:"operations"`
	NsPerOp    float64 `json:"ns_per_op"`
	OpsPerSec  float64 `json:"ops_per_sec"`
}

// benchReport is the JSON document written after a benchmark run.
type benchReport struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	GoVersion string        `json:"go_version"`
	Keys      int           `json:"keys"`
	Results   []benchResult `json:"results"`
}

// runBench times the core operations over count generated keys and writes a
// JSON report into reportDir. The bench keys are deleted afterwards, so a
// dictionary already holding data comes out unchanged.
func runBench(d *dict.Dict, count int, reportDir string) error {
	fmt.Printf("Benchmarking %d keys...\n", count)

	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench:%d", i)
	}

	var results []benchResult

	measure := func(name string, ops int, fn func()) {
		start := time.Now()
		fn()
		elapsed := time.Since(start)

		res := benchResult{
			Name:       name,
			Operations: ops,
			NsPerOp:    float64(elapsed.Nanoseconds()) / float64(ops),
			OpsPerSec:  float64(ops) / elapsed.Seconds(),
		}
		results = append(results, res)
		fmt.Printf("  %-7s %d ops in %v (%.0f ops/sec)\n",
			name+":", ops, elapsed.Round(time.Millisecond), res.OpsPerSec)
	}

	measure("add", count, func() {
		for i, k := range keys {
			d.Replace(k, i)
		}
	})

	hits := 0
	measure("find", count, func() {
		for _, k := range keys {
			if d.Find(k) != nil {
				hits++
			}
		}
	})

	measure("random", count, func() {
		for range count {
			d.RandomKey()
		}
	})

	scanned := 0
	measure("scan", d.Len(), func() {
		var cursor uint64
		for {
			cursor = d.Scan(cursor, func(*dict.Entry) { scanned++ })
			if cursor == 0 {
				break
			}
		}
	})

	measure("delete", count, func() {
		for _, k := range keys {
			d.Delete(k)
		}
	})

	fmt.Printf("  find hits: %d/%d, scanned: %d\n", hits, count, scanned)

	rep := benchReport{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		Keys:      count,
		Results:   results,
	}

	path, err := writeBenchReport(reportDir, rep)
	if err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", path)

	return nil
}

// writeBenchReport marshals the report and writes it atomically, so a crash
// mid-write never leaves a truncated report behind.
func writeBenchReport(dir string, rep benchReport) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("bench-%s.json", rep.ID))

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	return path, nil
}
