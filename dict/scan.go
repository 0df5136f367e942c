package dict

import "math/bits"

// Scan visits the bucket addressed by cursor, calls fn for each of its
// entries, and returns the cursor for the next call. A full scan starts at
// cursor 0 and is finished when Scan returns 0. The scan holds no state in
// the dict and allocates nothing, so any number of scans can be in flight.
//
// The cursor advances in reversed-bit order: the bits above the table mask
// are set, the word is bit-reversed, incremented, and reversed back. The
// effect is that a bucket's index bits are enumerated from the most
// significant end, and all the buckets a chain can be split across by a grow
// (or merged into by a shrink) are adjacent in cursor order. That gives the
// scan its guarantee: every element present from one cursor-0 to the next is
// reported at least once, no matter how the table is resized between calls.
// Elements may be reported more than once, and fn must not mutate the dict.
//
// While a migration is running, the bucket is visited in the smaller table
// first, then in every bucket of the larger table it expands to. Migration
// is paused for the duration of one call so the two tables cannot shift
// under fn.
func (d *Dict) Scan(cursor uint64, fn func(*Entry)) uint64 {
	if d.Len() == 0 {
		return 0
	}
	pauseRehash(d)
	if !d.Rehashing() {
		m0 := d.ht[0].sizemask
		for e := d.ht[0].buckets[cursor&m0]; e != nil; e = e.next {
			fn(e)
		}
		cursor |= ^m0
		cursor = bits.Reverse64(cursor)
		cursor++
		cursor = bits.Reverse64(cursor)
	} else {
		t0, t1 := 0, 1
		if d.ht[t0].size > d.ht[t1].size {
			t0, t1 = t1, t0
		}
		m0, m1 := d.ht[t0].sizemask, d.ht[t1].sizemask
		for e := d.ht[t0].buckets[cursor&m0]; e != nil; e = e.next {
			fn(e)
		}
		// The larger table has buckets for every value of the bits above the
		// smaller mask; iterate them all before moving the common bits.
		for {
			for e := d.ht[t1].buckets[cursor&m1]; e != nil; e = e.next {
				fn(e)
			}
			cursor |= ^m1
			cursor = bits.Reverse64(cursor)
			cursor++
			cursor = bits.Reverse64(cursor)
			if cursor&(m0^m1) == 0 {
				break
			}
		}
	}
	resumeRehash(d)
	return cursor
}
