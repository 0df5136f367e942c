package dict

import (
	"github.com/cespare/xxhash/v2"
	"math/rand/v2"
)

// RandomSeed returns a fresh seed for the hasher constructors below. Each
// dict seeded differently places the same keys in different buckets, which
// hardens against hash-flooding a known layout.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// StringHasher returns a keyed hash over string keys. The closure reuses one
// xxhash digest, so like the Dict itself it must be driven by a single
// goroutine at a time.
func StringHasher(seed uint64) func(key any) uint64 {
	d := xxhash.NewWithSeed(seed)
	return func(key any) uint64 {
		d.ResetWithSeed(seed)
		d.WriteString(key.(string))
		return d.Sum64()
	}
}

// BytesHasher returns a keyed hash over []byte keys.
func BytesHasher(seed uint64) func(key any) uint64 {
	d := xxhash.NewWithSeed(seed)
	return func(key any) uint64 {
		d.ResetWithSeed(seed)
		d.Write(key.([]byte))
		return d.Sum64()
	}
}

// CaseInsensitiveStringHasher returns a keyed hash over string keys that
// lowercases ASCII letters while hashing, so "Key" and "KEY" land in the same
// bucket. Pair it with a Compare that folds the same way, like equalFoldASCII.
func CaseInsensitiveStringHasher(seed uint64) func(key any) uint64 {
	d := xxhash.NewWithSeed(seed)
	var buf [64]byte
	return func(key any) uint64 {
		s := key.(string)
		d.ResetWithSeed(seed)
		for len(s) > 0 {
			n := copy(buf[:], s)
			for i := 0; i < n; i++ {
				buf[i] = lowerASCII(buf[i])
			}
			d.Write(buf[:n])
			s = s[n:]
		}
		return d.Sum64()
	}
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	return c
}

// equalFoldASCII reports whether a and b are equal after folding ASCII letter
// case, byte for byte. It must fold exactly what CaseInsensitiveStringHasher
// folds: two keys this reports equal always hash alike. Unicode-wide folds
// such as strings.EqualFold accept pairs the hasher separates.
func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}
