package dict

import (
	"fmt"
	"math"
	"math/bits"
)

const notRehashing = -1

// entryPtrBytes sizes a bucket slot for the expand-gate callback and the
// overflow check in expand.
const entryPtrBytes = bits.UintSize / 8

// table is one bucket array. A zero table is the unallocated state.
type table struct {
	buckets  []*Entry
	size     uint64
	sizemask uint64 // size - 1, so hash & sizemask indexes a bucket
	used     uint64
}

func resetTable(ht *table) {
	*ht = table{}
}

func hashKey(d *Dict, key any) uint64 {
	return d.typ.Hash(key)
}

func keyEqual(d *Dict, a, b any) bool {
	if d.typ.Compare != nil {
		return d.typ.Compare(a, b)
	}
	return a == b
}

func setKey(d *Dict, e *Entry, key any) {
	if d.typ.KeyDup != nil {
		key = d.typ.KeyDup(key)
	}
	e.key = key
}

func setPointerVal(d *Dict, e *Entry, v any) {
	if d.typ.ValDup != nil {
		v = d.typ.ValDup(v)
	}
	e.kind = ValuePointer
	e.ptr = v
	e.num = 0
}

func freeKey(d *Dict, e *Entry) {
	if d.typ.KeyDestructor != nil {
		d.typ.KeyDestructor(e.key)
	}
}

// freeVal runs the value destructor. Numeric kinds carry no resources, so
// only the pointer kind is ever destroyed.
func freeVal(d *Dict, e *Entry) {
	if d.typ.ValDestructor != nil && e.kind == ValuePointer {
		d.typ.ValDestructor(e.ptr)
	}
}

func pauseRehash(d *Dict) {
	d.pause++
}

func resumeRehash(d *Dict) {
	d.pause--
}

// rehashStep is the opportunistic migration step taken by every mutating or
// lookup operation. Safe iterators and Scan switch it off through the pause
// counter while they hold a view of both tables.
func rehashStep(d *Dict) {
	if d.pause == 0 {
		rehash(d, 1)
	}
}

// rehash moves up to n bucket chains from ht[0] to ht[1] and reports whether
// more work remains. Empty bucket visits are capped at 10*n per call so a
// step stays cheap on a sparse table. When ht[0] drains completely, ht[1]
// takes its place and the dict returns to the stable state.
func rehash(d *Dict, n int) bool {
	emptyVisits := n * 10
	if !d.Rehashing() {
		return false
	}
	for ; n > 0 && d.ht[0].used != 0; n-- {
		// ht[0].used != 0 guarantees a nonempty bucket ahead, so rehashidx
		// cannot run off the table here.
		for d.ht[0].buckets[d.rehashidx] == nil {
			d.rehashidx++
			emptyVisits--
			if emptyVisits == 0 {
				return true
			}
		}
		// Move the whole chain, rehashing every key against the new mask.
		e := d.ht[0].buckets[d.rehashidx]
		for e != nil {
			next := e.next
			idx := hashKey(d, e.key) & d.ht[1].sizemask
			e.next = d.ht[1].buckets[idx]
			d.ht[1].buckets[idx] = e
			d.ht[0].used--
			d.ht[1].used++
			e = next
		}
		d.ht[0].buckets[d.rehashidx] = nil
		d.rehashidx++
		d.gen++
	}
	if d.ht[0].used == 0 {
		d.ht[0] = d.ht[1]
		resetTable(&d.ht[1])
		d.rehashidx = notRehashing
		d.gen++
		return false
	}
	return true
}

// expand installs a bucket array of nextPower(size) buckets: directly as
// ht[0] on the first allocation, otherwise as ht[1] with the migration
// cursor armed.
func expand(d *Dict, size uint64, try bool) error {
	if d.Rehashing() || d.ht[0].used > size {
		return fmt.Errorf("%w: rehashing or %d elements do not fit in %d", ErrInvalidExpand, d.ht[0].used, size)
	}
	realsize := nextPower(size)
	if realsize < size || realsize*entryPtrBytes < realsize {
		return fmt.Errorf("%w: size %d overflows", ErrInvalidExpand, size)
	}
	if realsize == d.ht[0].size {
		return fmt.Errorf("%w: capacity is already %d", ErrInvalidExpand, realsize)
	}
	buckets, err := allocBuckets(realsize, try)
	if err != nil {
		return err
	}
	fresh := table{buckets: buckets, size: realsize, sizemask: realsize - 1}
	d.gen++
	if d.ht[0].buckets == nil {
		d.ht[0] = fresh
		return nil
	}
	d.ht[1] = fresh
	d.rehashidx = 0
	return nil
}

// allocBuckets allocates the array, optionally converting the runtime's
// allocation panic into ErrAllocation for the try family.
func allocBuckets(n uint64, try bool) (buckets []*Entry, err error) {
	if try {
		defer func() {
			if r := recover(); r != nil {
				buckets = nil
				err = fmt.Errorf("%w: %d buckets: %v", ErrAllocation, n, r)
			}
		}()
	}
	return make([]*Entry, n), nil
}

// nextPower returns the smallest power of two >= size, starting at
// InitialSize. Sizes near the top of the range are clamped to 2^63, which
// expand then rejects in its overflow check.
func nextPower(size uint64) uint64 {
	i := uint64(InitialSize)
	if size >= math.MaxInt64 {
		return uint64(math.MaxInt64) + 1
	}
	for i < size {
		i *= 2
	}
	return i
}

// expandIfNeeded is the growth policy run before every insert: allocate the
// initial table on first use, then grow once used reaches size, provided
// resizing is enabled (or the table is overloaded past forceExpandRatio) and
// the type's expand gate approves.
//
// expand cannot fail from either call below: the dict is stable, the
// requested size exceeds both used and the current capacity, and the non-try
// allocator panics instead of returning an error.
func expandIfNeeded(d *Dict) {
	if d.Rehashing() {
		return
	}
	if d.ht[0].size == 0 {
		_ = expand(d, InitialSize, false)
		return
	}
	if d.ht[0].used >= d.ht[0].size &&
		(d.canResize || d.ht[0].used/d.ht[0].size > forceExpandRatio) &&
		expandAllowed(d) {
		_ = expand(d, d.ht[0].used+1, false)
	}
}

func expandAllowed(d *Dict) bool {
	if d.typ.ExpandAllowed == nil {
		return true
	}
	return d.typ.ExpandAllowed(
		nextPower(d.ht[0].used+1)*entryPtrBytes,
		float64(d.ht[0].used)/float64(d.ht[0].size),
	)
}

// keyIndex runs the growth policy and returns the bucket index key belongs
// to: an ht[1] index while migrating, since inserts must not land in the
// draining table. When the key is already present the existing entry is
// returned instead and the index is meaningless.
func keyIndex(d *Dict, key any, h uint64) (uint64, *Entry) {
	expandIfNeeded(d)
	var idx uint64
	for tbl := 0; tbl <= 1; tbl++ {
		idx = h & d.ht[tbl].sizemask
		for e := d.ht[tbl].buckets[idx]; e != nil; e = e.next {
			if keyEqual(d, key, e.key) {
				return idx, e
			}
		}
		if !d.Rehashing() {
			break
		}
	}
	return idx, nil
}

// addRaw inserts key at the head of its bucket and returns the new entry with
// an unset value slot, or (nil, existing) when the key is present.
func addRaw(d *Dict, key any) (*Entry, *Entry) {
	if d.Rehashing() {
		rehashStep(d)
	}
	idx, existing := keyIndex(d, key, hashKey(d, key))
	if existing != nil {
		return nil, existing
	}
	ht := &d.ht[0]
	if d.Rehashing() {
		ht = &d.ht[1]
	}
	e := &Entry{next: ht.buckets[idx]}
	ht.buckets[idx] = e
	ht.used++
	setKey(d, e, key)
	d.gen++
	return e, nil
}

func find(d *Dict, key any) *Entry {
	if d.ht[0].used == 0 && d.ht[1].used == 0 {
		return nil
	}
	if d.Rehashing() {
		rehashStep(d)
	}
	h := hashKey(d, key)
	for tbl := 0; tbl <= 1; tbl++ {
		idx := h & d.ht[tbl].sizemask
		for e := d.ht[tbl].buckets[idx]; e != nil; e = e.next {
			if keyEqual(d, key, e.key) {
				return e
			}
		}
		if !d.Rehashing() {
			break
		}
	}
	return nil
}

// genericDelete unlinks key's entry from its chain. With nofree the entry
// survives for the caller (Unlink); otherwise its destructors run here. The
// entry's next pointer is left alone, so a traversal holding the entry can
// still continue past it.
func genericDelete(d *Dict, key any, nofree bool) *Entry {
	if d.ht[0].used == 0 && d.ht[1].used == 0 {
		return nil
	}
	if d.Rehashing() {
		rehashStep(d)
	}
	h := hashKey(d, key)
	for tbl := 0; tbl <= 1; tbl++ {
		idx := h & d.ht[tbl].sizemask
		var prev *Entry
		for e := d.ht[tbl].buckets[idx]; e != nil; e = e.next {
			if keyEqual(d, key, e.key) {
				if prev != nil {
					prev.next = e.next
				} else {
					d.ht[tbl].buckets[idx] = e.next
				}
				if !nofree {
					freeKey(d, e)
					freeVal(d, e)
				}
				d.ht[tbl].used--
				d.gen++
				return e
			}
			prev = e
		}
		if !d.Rehashing() {
			break
		}
	}
	return nil
}

// clearTable destroys every entry and returns ht to the unallocated state.
// callback fires every 65536 buckets.
func clearTable(d *Dict, ht *table, callback func()) {
	for i := uint64(0); i < ht.size && ht.used > 0; i++ {
		if callback != nil && i&65535 == 0 {
			callback()
		}
		e := ht.buckets[i]
		for e != nil {
			next := e.next
			freeKey(d, e)
			freeVal(d, e)
			ht.used--
			e = next
		}
	}
	resetTable(ht)
}
