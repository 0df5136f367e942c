package dict

import "fmt"

// Iterator walks every entry in bucket order, continuing into the migration
// target table when one is active. Two variants share this traversal:
//
// A safe iterator (SafeIterator) freezes migration from its first Next until
// Release, so the caller may freely Add, Find and Delete while iterating.
// The cost is that rehashing is deferred for that long, not skipped.
//
// An unsafe iterator (Iterator) costs nothing at all during traversal, but
// the dict must not change structurally meanwhile: only Next may touch it.
// Release verifies this and panics on violation, because a violated
// traversal may have missed or repeated entries and the caller's results
// cannot be trusted.
//
// In both variants the entry just yielded by Next may be deleted: its
// successor is saved before yielding.
type Iterator struct {
	d         *Dict
	index     int64
	table     int
	safe      bool
	entry     *Entry
	nextEntry *Entry
	gen       uint64 // generation at the first step, unsafe variant only
}

// Iterator returns an unsafe iterator over d.
func (d *Dict) Iterator() *Iterator {
	return &Iterator{d: d, index: -1}
}

// SafeIterator returns a safe iterator over d.
func (d *Dict) SafeIterator() *Iterator {
	return &Iterator{d: d, index: -1, safe: true}
}

// Next returns the next entry, or nil when the traversal is done.
func (it *Iterator) Next() *Entry {
	for {
		if it.entry == nil {
			ht := &it.d.ht[it.table]
			if it.index == -1 && it.table == 0 {
				// First step: freeze migration, or snapshot the generation
				// for the misuse check at Release.
				if it.safe {
					pauseRehash(it.d)
				} else {
					it.gen = it.d.gen
				}
			}
			it.index++
			if it.index >= int64(ht.size) {
				if it.d.Rehashing() && it.table == 0 {
					it.table = 1
					it.index = 0
					ht = &it.d.ht[1]
				} else {
					break
				}
			}
			it.entry = ht.buckets[it.index]
		} else {
			it.entry = it.nextEntry
		}
		if it.entry != nil {
			it.nextEntry = it.entry.next
			return it.entry
		}
	}
	return nil
}

// Release ends the traversal: a safe iterator resumes migration here, an
// unsafe one panics with an ErrIteratorMisuse error when the dict changed
// structurally since its first step. Releasing an iterator that never
// stepped is a no-op.
func (it *Iterator) Release() {
	if it.index == -1 && it.table == 0 {
		return
	}
	if it.safe {
		resumeRehash(it.d)
	} else if it.gen != it.d.gen {
		panic(fmt.Errorf("%w: dict changed structurally during unsafe iteration", ErrIteratorMisuse))
	}
}
