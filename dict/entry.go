package dict

import "math"

// ValueKind discriminates which member of an entry's value slot is set.
type ValueKind uint8

const (
	// ValueNone marks a fresh entry whose value was never set, e.g. one just
	// returned by AddOrFind.
	ValueNone ValueKind = iota
	// ValuePointer marks a value stored with Add, Replace or Dict.SetValue.
	ValuePointer
	// ValueUint64 marks a value stored with SetUint64.
	ValueUint64
	// ValueInt64 marks a value stored with SetInt64.
	ValueInt64
	// ValueFloat64 marks a value stored with SetFloat64.
	ValueFloat64
)

// Entry is a key/value node chained within one bucket. The value is a tagged
// slot: exactly one of the pointer, unsigned, signed or float members is live
// at a time, and the caller reads it back with the accessor matching the
// setter that was used last.
type Entry struct {
	key  any
	ptr  any    // ValuePointer member
	num  uint64 // raw bits of the numeric members
	kind ValueKind
	next *Entry
}

// Key returns the entry key.
func (e *Entry) Key() any { return e.key }

// Kind reports which accessor matches the stored value.
func (e *Entry) Kind() ValueKind { return e.kind }

// Value returns the pointer member of the value slot.
func (e *Entry) Value() any { return e.ptr }

// Uint64 returns the unsigned member of the value slot.
func (e *Entry) Uint64() uint64 { return e.num }

// Int64 returns the signed member of the value slot.
func (e *Entry) Int64() int64 { return int64(e.num) }

// Float64 returns the float member of the value slot.
func (e *Entry) Float64() float64 { return math.Float64frombits(e.num) }

// SetUint64 stores u in the unsigned member.
func (e *Entry) SetUint64(u uint64) {
	e.kind = ValueUint64
	e.ptr = nil
	e.num = u
}

// SetInt64 stores i in the signed member.
func (e *Entry) SetInt64(i int64) {
	e.kind = ValueInt64
	e.ptr = nil
	e.num = uint64(i)
}

// SetFloat64 stores f in the float member.
func (e *Entry) SetFloat64(f float64) {
	e.kind = ValueFloat64
	e.ptr = nil
	e.num = math.Float64bits(f)
}
