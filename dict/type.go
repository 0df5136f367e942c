package dict

import (
	"bytes"
	"slices"
)

// Type is the capability set a Dict is constructed with. It gives the engine
// polymorphism over key and value representations: the Dict itself never
// inspects keys or pointer values except through these functions. Every field
// but Hash may be left nil to get the default behavior described on it.
//
// A Type is shared by reference between all dicts created with it and must
// not be modified while any of them is live.
type Type struct {
	// Hash maps a key to a 64-bit hash. Required.
	Hash func(key any) uint64

	// Compare reports whether two keys are equal. When nil, keys are compared
	// with Go interface equality, which requires comparable key types.
	Compare func(a, b any) bool

	// KeyDup, when set, duplicates a key on insert. The table stores the copy
	// and the caller keeps ownership of the original.
	KeyDup func(key any) any

	// ValDup, when set, duplicates pointer values installed by Add and
	// Replace. Numeric value kinds are copied directly and never duplicated.
	ValDup func(v any) any

	// KeyDestructor, when set, releases a key removed from the table.
	KeyDestructor func(key any)

	// ValDestructor, when set, releases a pointer value removed from the
	// table or overwritten by Replace. It is never called for numeric kinds.
	ValDestructor func(v any)

	// ExpandAllowed, when set, may veto an automatic grow. It receives the
	// prospective bucket-array size in bytes and the current load ratio.
	ExpandAllowed func(prospectiveBytes uint64, usedRatio float64) bool
}

// StringType returns a descriptor for string keys hashed with the given seed.
// Keys are borrowed, not copied; Go strings are immutable so that is always
// safe. Compare is left nil: interface equality on two strings compares their
// contents.
func StringType(seed uint64) *Type {
	return &Type{
		Hash: StringHasher(seed),
	}
}

// CaseInsensitiveStringType returns a descriptor for string keys where keys
// differing only in ASCII case are the same key. Keys that fold equal only
// under full Unicode case rules, like "k" and the Kelvin sign, stay distinct:
// Hash and Compare must agree on what folds, and the hasher folds ASCII.
func CaseInsensitiveStringType(seed uint64) *Type {
	return &Type{
		Hash: CaseInsensitiveStringHasher(seed),
		Compare: func(a, b any) bool {
			return equalFoldASCII(a.(string), b.(string))
		},
	}
}

// BytesType returns a descriptor for []byte keys hashed with the given seed.
// Keys are cloned on insert, so the caller may reuse its slice after Add.
func BytesType(seed uint64) *Type {
	return &Type{
		Hash: BytesHasher(seed),
		Compare: func(a, b any) bool {
			return bytes.Equal(a.([]byte), b.([]byte))
		},
		KeyDup: func(key any) any {
			return slices.Clone(key.([]byte))
		},
	}
}
