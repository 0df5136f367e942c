package dict

import (
	"fmt"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func iterCounts(it *Iterator) map[string]int {
	counts := make(map[string]int)
	for e := it.Next(); e != nil; e = it.Next() {
		counts[e.Key().(string)]++
	}
	return counts
}

// releaseErr converts the misuse panic into an error for assertions.
func releaseErr(it *Iterator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(error)
		}
	}()
	it.Release()
	return nil
}

func onceEach(keys []string) map[string]int {
	want := make(map[string]int, len(keys))
	for _, k := range keys {
		want[k] = 1
	}
	return want
}

func TestIterator(t *testing.T) {
	t.Run("stable dict; should yield every key exactly once", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 50)
		drainRehash(d)

		it := d.Iterator()
		got := iterCounts(it)
		assert.NotPanics(t, func() { it.Release() })

		if diff := cmp.Diff(onceEach(keys), got); diff != "" {
			t.Errorf("yielded keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("dict mid-migration; should walk both tables exactly once", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 50)
		drainRehash(d)
		require.NoError(t, d.Expand(256))
		require.True(t, d.Rehash(3))
		require.True(t, d.Rehashing())
		require.NotZero(t, d.ht[1].used)

		it := d.Iterator()
		got := iterCounts(it)
		assert.NotPanics(t, func() { it.Release() })

		if diff := cmp.Diff(onceEach(keys), got); diff != "" {
			t.Errorf("yielded keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mutation during traversal; should panic on release", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		fillSequential(t, d, 10)

		it := d.Iterator()
		require.NotNil(t, it.Next())
		require.NoError(t, d.Add("extra", 1))

		err := releaseErr(it)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIteratorMisuse)
	})

	t.Run("delete during traversal; should panic on release", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 10)
		drainRehash(d)

		it := d.Iterator()
		require.NotNil(t, it.Next())
		require.NoError(t, d.Delete(keys[3]))

		assert.ErrorIs(t, releaseErr(it), ErrIteratorMisuse)
	})

	t.Run("value overwrite during traversal; should not count as structural", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 20)
		drainRehash(d)

		it := d.Iterator()
		require.NotNil(t, it.Next())
		assert.False(t, d.Replace(keys[5], "rewritten"))
		d.Find(keys[6]).SetUint64(99)

		assert.NotPanics(t, func() { it.Release() })
	})

	t.Run("pure reads on a stable dict; should release cleanly", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 50)
		drainRehash(d)

		it := d.Iterator()
		for i := 0; i < 10; i++ {
			require.NotNil(t, it.Next())
			require.NotNil(t, d.Find(keys[i]))
		}
		for it.Next() != nil {
		}
		assert.NotPanics(t, func() { it.Release() })
	})

	t.Run("released without stepping; should be a no-op", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		fillSequential(t, d, 5)

		assert.NotPanics(t, func() { d.Iterator().Release() })
		assert.NotPanics(t, func() { d.SafeIterator().Release() })
		assert.Equal(t, int64(0), d.pause)
	})

	t.Run("empty dict; should yield nothing and release cleanly", func(t *testing.T) {
		d := New(StringType(testSeed), nil)

		it := d.Iterator()
		assert.Nil(t, it.Next())
		assert.NotPanics(t, func() { it.Release() })

		sit := d.SafeIterator()
		assert.Nil(t, sit.Next())
		assert.NotPanics(t, func() { sit.Release() })
		assert.Equal(t, int64(0), d.pause)
	})
}

func TestSafeIterator(t *testing.T) {
	t.Run("interleaved mutations; should keep the dict consistent", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 100)

		deleted := make(map[string]bool)
		added := make(map[string]bool)
		it := d.SafeIterator()
		i := 0
		for e := it.Next(); e != nil; e = it.Next() {
			k := e.Key().(string)
			if i%2 == 0 && !deleted[k] && !added[k] {
				require.NoError(t, d.Delete(k))
				deleted[k] = true
			}
			if i%10 == 0 {
				nk := fmt.Sprintf("new:%d", i)
				require.NoError(t, d.Add(nk, i))
				added[nk] = true
			}
			i++
		}
		it.Release()

		assert.Equal(t, int64(0), d.pause)
		assert.Equal(t, len(keys)-len(deleted)+len(added), d.Len())
		for k := range deleted {
			assert.Nil(t, d.Find(k))
		}
		for k := range added {
			assert.NotNil(t, d.Find(k))
		}
	})

	t.Run("deleting every yielded entry; should still visit all of them", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 100)
		drainRehash(d)
		require.NoError(t, d.Expand(512))
		require.True(t, d.Rehash(5))

		visited := 0
		it := d.SafeIterator()
		for e := it.Next(); e != nil; e = it.Next() {
			require.NoError(t, d.Delete(e.Key().(string)))
			visited++
		}
		it.Release()

		assert.Equal(t, len(keys), visited)
		assert.Equal(t, 0, d.Len())
	})

	t.Run("nested iterators; should balance the pause counter", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		fillSequential(t, d, 50)
		drainRehash(d)
		require.NoError(t, d.Expand(256))

		outer := d.SafeIterator()
		inner := d.SafeIterator()
		require.NotNil(t, outer.Next())
		require.NotNil(t, inner.Next())
		assert.Equal(t, int64(2), d.pause)

		inner.Release()
		assert.Equal(t, int64(1), d.pause)
		outer.Release()
		assert.Equal(t, int64(0), d.pause)

		// With the pauses gone, migration can make progress again.
		assert.True(t, d.Rehash(1))
	})

	t.Run("active iterator; should freeze the migration cursor", func(t *testing.T) {
		d := New(StringType(testSeed), nil)
		keys := fillSequential(t, d, 50)
		drainRehash(d)
		require.NoError(t, d.Expand(256))
		require.True(t, d.Rehashing())

		it := d.SafeIterator()
		require.NotNil(t, it.Next())
		before := d.rehashidx
		for i := 0; i < 10; i++ {
			require.NotNil(t, d.Find(keys[i]))
		}
		assert.Equal(t, before, d.rehashidx)
		it.Release()

		require.NotNil(t, d.Find(keys[0]))
		assert.Greater(t, d.rehashidx, before)
	})
}
