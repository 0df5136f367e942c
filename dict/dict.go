// Package dict implements a chained hash table that grows and shrinks
// incrementally: capacity changes never stop the world, because entries are
// migrated to the new bucket array a few buckets at a time, piggybacked on
// the normal operation stream.
package dict

import (
	"fmt"
	"time"
)

const (
	// InitialSize is the capacity a table receives on its first insert.
	InitialSize = 4

	// forceExpandRatio is the used/size ratio past which growth proceeds even
	// while automatic resizing is disabled, to bound worst-case chain length.
	forceExpandRatio = 5
)

// Dict is a hash table mapping arbitrary keys to tagged values with O(1)
// average lookup, insert and delete.
//
// It owns two bucket arrays. Normally only the first is live. When the load
// policy decides to change capacity, the second array is allocated at the new
// size and a migration begins: every mutating or lookup call moves at most
// one bucket's chain across, new inserts go straight to the new array, and
// lookups probe both. Once the old array drains, the new one takes its place.
// The caller never waits for more than one bucket move, whatever the table
// size.
//
// A Dict is driven by one goroutine at a time; it performs no locking. The
// reentrant pause counter used by safe iterators and Scan guards against
// nested calls on that same goroutine, not against concurrent mutators.
// Wrap the Dict yourself if several goroutines must share it.
type Dict struct {
	typ *Type
	ctx any

	ht        [2]table
	rehashidx int64 // next ht[0] bucket to migrate, notRehashing when stable
	pause     int64 // reentrant; while >0 the opportunistic rehash step is off
	gen       uint64
	canResize bool
}

// New creates an empty dict driven by the capability set tp. The ctx value is
// not interpreted by the engine; it is carried for the caller and returned by
// Ctx. New panics when tp is unusable, since no operation could ever succeed.
func New(tp *Type, ctx any) *Dict {
	if tp == nil {
		panic(fmt.Errorf("dict type must not be nil"))
	}
	if tp.Hash == nil {
		panic(fmt.Errorf("dict type must provide a Hash function"))
	}
	return &Dict{
		typ:       tp,
		ctx:       ctx,
		rehashidx: notRehashing,
		canResize: true,
	}
}

// Len returns the number of live entries across both tables.
func (d *Dict) Len() int {
	return int(d.ht[0].used + d.ht[1].used)
}

// Slots returns the combined bucket capacity of both tables. While a
// migration is running this counts the old and the new array together.
func (d *Dict) Slots() uint64 {
	return d.ht[0].size + d.ht[1].size
}

// Rehashing reports whether a migration is in progress.
func (d *Dict) Rehashing() bool {
	return d.rehashidx != notRehashing
}

// Ctx returns the value passed to New.
func (d *Dict) Ctx() any {
	return d.ctx
}

// Add inserts key with a pointer value. It fails with ErrKeyExists when the
// key is already present, leaving the stored value untouched.
func (d *Dict) Add(key, val any) error {
	e, existing := addRaw(d, key)
	if existing != nil {
		return fmt.Errorf("%w: %v", ErrKeyExists, key)
	}
	setPointerVal(d, e, val)
	return nil
}

// AddOrFind returns the entry for key, inserting one when absent. A freshly
// inserted entry has ValueNone kind; store a pointer value with SetValue or a
// number with the Entry setters. This replaces the add-then-find dance when
// the caller wants to update in place without deciding key ownership twice.
func (d *Dict) AddOrFind(key any) *Entry {
	e, existing := addRaw(d, key)
	if existing != nil {
		return existing
	}
	return e
}

// SetValue stores v as e's pointer value, running ValDup exactly as Add and
// Replace do. The numeric Entry setters need no dict because numbers are
// never duplicated. SetValue does not destroy a previous pointer value; use
// Replace when the old value must be released.
func (d *Dict) SetValue(e *Entry, v any) {
	setPointerVal(d, e, v)
}

// Replace upserts key with a pointer value and reports whether it inserted
// (true) or updated an existing entry (false). On update the new value is
// installed before the old one is destroyed, so reference-counted values
// survive being replaced by themselves.
func (d *Dict) Replace(key, val any) bool {
	e, existing := addRaw(d, key)
	if e != nil {
		setPointerVal(d, e, val)
		return true
	}
	old := *existing
	setPointerVal(d, existing, val)
	freeVal(d, &old)
	return false
}

// Find returns the entry for key, or nil when absent. An empty dict answers
// without hashing the key.
func (d *Dict) Find(key any) *Entry {
	return find(d, key)
}

// Fetch returns the pointer value stored under key, or ErrNotFound.
func (d *Dict) Fetch(key any) (any, error) {
	e := find(d, key)
	if e == nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return e.ptr, nil
}

// Delete removes key and destroys its entry, or returns ErrNotFound.
func (d *Dict) Delete(key any) error {
	if e := genericDelete(d, key, false); e == nil {
		return fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return nil
}

// Unlink removes key from the table but keeps the entry alive and hands it to
// the caller, who can inspect it and must finally pass it to
// FreeUnlinkedEntry. Compared to Find followed by Delete this probes the
// table once.
func (d *Dict) Unlink(key any) (*Entry, error) {
	e := genericDelete(d, key, true)
	if e == nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return e, nil
}

// FreeUnlinkedEntry runs the destructors for an entry obtained from Unlink.
// Calling it with nil is a no-op so an Unlink miss can be passed through.
func (d *Dict) FreeUnlinkedEntry(e *Entry) {
	if e == nil {
		return
	}
	freeKey(d, e)
	freeVal(d, e)
}

// Expand grows (or initially sizes) the table so that at least size elements
// fit, rounding up to the next power of two, and starts the migration. The
// precondition failures are reported as ErrInvalidExpand; an impossible
// allocation panics, like any failed Go allocation would.
func (d *Dict) Expand(size uint64) error {
	return expand(d, size, false)
}

// TryExpand is Expand except that a failed bucket-array allocation is
// reported as ErrAllocation instead of panicking.
func (d *Dict) TryExpand(size uint64) error {
	return expand(d, size, true)
}

// Resize shrinks the table to the smallest power of two that still fits the
// current element count, never below InitialSize. It fails with
// ErrInvalidExpand while automatic resizing is disabled or a migration is
// running.
func (d *Dict) Resize() error {
	if !d.canResize || d.Rehashing() {
		return fmt.Errorf("%w: resize disabled or rehash in progress", ErrInvalidExpand)
	}
	minimal := d.ht[0].used
	if minimal < InitialSize {
		minimal = InitialSize
	}
	return expand(d, minimal, false)
}

// EnableResize lets the load policy grow the table again.
func (d *Dict) EnableResize() {
	d.canResize = true
}

// DisableResize suspends automatic growth, except that a table loaded past
// forceExpandRatio grows anyway. Snapshot-style users disable resizing while
// a copy-on-write child is alive so the parent does not churn shared pages.
func (d *Dict) DisableResize() {
	d.canResize = false
}

// Rehash performs up to n bucket migrations and reports whether more work
// remains. It visits at most 10*n empty buckets before giving back control,
// so a call is cheap even when the table is sparse. It is a no-op on a
// stable dict.
func (d *Dict) Rehash(n int) bool {
	return rehash(d, n)
}

// RehashFor migrates in 100-bucket batches until the budget elapses or the
// migration completes, and returns the number of batched bucket visits. It
// refuses to run while rehashing is paused.
func (d *Dict) RehashFor(budget time.Duration) int {
	if d.pause > 0 {
		return 0
	}
	start := time.Now()
	performed := 0
	for rehash(d, 100) {
		performed += 100
		if time.Since(start) > budget {
			break
		}
	}
	return performed
}

// Empty discards every entry but keeps the dict usable. When callback is
// non-nil it is invoked once per 65536 buckets cleared, so a host event loop
// can breathe during a huge clear. Any paused or in-progress migration is
// discarded with the entries.
func (d *Dict) Empty(callback func()) {
	clearTable(d, &d.ht[0], callback)
	clearTable(d, &d.ht[1], callback)
	d.rehashidx = notRehashing
	d.pause = 0
	d.gen++
}

// Release destroys the dict's contents, running both destructors for every
// entry. The dict must not be used afterwards.
func (d *Dict) Release() {
	clearTable(d, &d.ht[0], nil)
	clearTable(d, &d.ht[1], nil)
}
