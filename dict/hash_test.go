package dict

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestHashers(t *testing.T) {
	t.Run("same seed; should agree across instances", func(t *testing.T) {
		h1 := StringHasher(7)
		h2 := StringHasher(7)
		for _, k := range []string{"", "a", "dict", strings.Repeat("x", 300)} {
			assert.Equal(t, h1(k), h2(k))
		}
	})

	t.Run("different seeds; should disagree", func(t *testing.T) {
		h1 := StringHasher(1)
		h2 := StringHasher(2)
		assert.NotEqual(t, h1("key"), h2("key"))
	})

	t.Run("case-insensitive; should match case variants", func(t *testing.T) {
		h := CaseInsensitiveStringHasher(7)
		assert.Equal(t, h("DictKey"), h("dictkey"))
		assert.Equal(t, h("DictKey"), h("DICTKEY"))
		assert.NotEqual(t, h("abc"), h("abd"))

		// Long inputs span several lowercase chunks.
		long := strings.Repeat("AbCdEfGh", 40)
		assert.Equal(t, h(long), h(strings.ToLower(long)))
	})

	t.Run("bytes hasher; should hash by content", func(t *testing.T) {
		h := BytesHasher(7)
		assert.Equal(t, h([]byte("abc")), h([]byte("abc")))
		assert.NotEqual(t, h([]byte("abc")), h([]byte("abd")))
	})

	t.Run("random seeds; should differ per call", func(t *testing.T) {
		assert.NotEqual(t, RandomSeed(), RandomSeed())
	})
}

func TestCaseInsensitiveDict(t *testing.T) {
	d := New(CaseInsensitiveStringType(testSeed), nil)
	require.NoError(t, d.Add("Hello", 1))

	assert.ErrorIs(t, d.Add("HELLO", 2), ErrKeyExists)
	assert.Equal(t, 1, d.Len())

	e := d.Find("hello")
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Value())

	require.NoError(t, d.Delete("heLLo"))
	assert.Equal(t, 0, d.Len())
}

func TestCaseInsensitiveFoldPairs(t *testing.T) {
	t.Run("compare-equal keys; should hash alike", func(t *testing.T) {
		tp := CaseInsensitiveStringType(testSeed)
		require.True(t, tp.Compare("Kelvin", "KELVIN"))
		assert.Equal(t, tp.Hash("Kelvin"), tp.Hash("KELVIN"))
	})

	t.Run("unicode-only fold pairs; should stay distinct keys", func(t *testing.T) {
		// "K" (the Kelvin sign) and "ſ" (long s) fold to "k" and
		// "s" under Unicode rules but not under ASCII folding.
		tp := CaseInsensitiveStringType(testSeed)
		assert.False(t, tp.Compare("k", "K"))
		assert.False(t, tp.Compare("s", "ſ"))

		d := New(tp, nil)
		require.NoError(t, d.Add("k", 1))
		require.NoError(t, d.Add("K", 2))
		assert.Equal(t, 2, d.Len())

		e := d.Find("K")
		require.NotNil(t, e)
		assert.Equal(t, 1, e.Value())

		e = d.Find("K")
		require.NotNil(t, e)
		assert.Equal(t, 2, e.Value())
	})
}

func TestBytesDict(t *testing.T) {
	d := New(BytesType(testSeed), nil)
	key := []byte("shared")
	require.NoError(t, d.Add(key, 1))

	// The dict keeps its own copy, so mutating the caller's slice afterwards
	// must not disturb the stored key.
	key[0] = 'X'
	e := d.Find([]byte("shared"))
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Value())
	assert.Nil(t, d.Find(key))
}
