package dict

import (
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func scanCounts(d *Dict) map[string]int {
	counts := make(map[string]int)
	cursor := uint64(0)
	for {
		cursor = d.Scan(cursor, func(e *Entry) {
			counts[e.Key().(string)]++
		})
		if cursor == 0 {
			break
		}
	}
	return counts
}

func TestScan(t *testing.T) {
	t.Run("stable dict; should report every key exactly once", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 64)
		drainRehash(d)

		if diff := cmp.Diff(onceEach(keys), scanCounts(d)); diff != "" {
			t.Errorf("scanned keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("undisturbed mid-migration; should report every key exactly once", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 64)
		drainRehash(d)
		require.NoError(t, d.Expand(512))
		require.True(t, d.Rehash(4))
		require.True(t, d.Rehashing())

		if diff := cmp.Diff(onceEach(keys), scanCounts(d)); diff != "" {
			t.Errorf("scanned keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("growth between steps; should never miss a live key", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 64)
		drainRehash(d)

		counts := make(map[string]int)
		cursor := uint64(0)
		started := false
		for {
			cursor = d.Scan(cursor, func(e *Entry) {
				counts[e.Key().(string)]++
			})
			if cursor == 0 {
				break
			}
			if !started {
				require.NoError(t, d.Expand(1024))
				started = true
			} else {
				d.Rehash(1)
			}
		}

		for _, k := range keys {
			assert.GreaterOrEqual(t, counts[k], 1, "key %q never reported", k)
		}
	})

	t.Run("shrink between steps; should never miss a surviving key", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 64)
		drainRehash(d)
		for _, k := range keys[16:] {
			require.NoError(t, d.Delete(k))
		}

		counts := make(map[string]int)
		cursor := uint64(0)
		started := false
		for {
			cursor = d.Scan(cursor, func(e *Entry) {
				counts[e.Key().(string)]++
			})
			if cursor == 0 {
				break
			}
			if !started {
				require.NoError(t, d.Resize())
				started = true
			} else {
				d.Rehash(1)
			}
		}

		for _, k := range keys[:16] {
			assert.GreaterOrEqual(t, counts[k], 1, "key %q never reported", k)
		}
	})

	t.Run("empty dict; should finish immediately", func(t *testing.T) {
		d := New(StringType(testSeed), nil)

		called := false
		cursor := d.Scan(0, func(*Entry) { called = true })
		assert.Equal(t, uint64(0), cursor)
		assert.False(t, called)
	})

	t.Run("colliding chain; should arrive in a single callback batch", func(t *testing.T) {
		d := New(collidingType(2), nil)
		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, d.Add(k, k))
		}

		var perCall []int
		cursor := uint64(0)
		for {
			n := 0
			cursor = d.Scan(cursor, func(*Entry) { n++ })
			perCall = append(perCall, n)
			if cursor == 0 {
				break
			}
		}

		assert.Contains(t, perCall, 3)
		total := 0
		for _, n := range perCall {
			total += n
		}
		assert.Equal(t, 3, total)
	})
}
