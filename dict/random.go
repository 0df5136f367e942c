package dict

import "math/rand/v2"

// fairSamples is the batch size FairRandomKey draws before picking one.
const fairSamples = 15

// RandomKey returns a random entry, or nil when the dict is empty. The draw
// picks a random nonempty bucket and then a uniform position in its chain,
// so elements on long chains are undersampled. FairRandomKey evens that out
// at a higher cost.
func (d *Dict) RandomKey() *Entry {
	if d.Len() == 0 {
		return nil
	}
	if d.Rehashing() {
		rehashStep(d)
	}
	var e *Entry
	if d.Rehashing() {
		// Buckets below rehashidx are already drained; draw only from the
		// live range of both tables.
		slots := d.ht[0].size + d.ht[1].size
		for e == nil {
			h := uint64(d.rehashidx) + rand.Uint64N(slots-uint64(d.rehashidx))
			if h >= d.ht[0].size {
				e = d.ht[1].buckets[h-d.ht[0].size]
			} else {
				e = d.ht[0].buckets[h]
			}
		}
	} else {
		for e == nil {
			e = d.ht[0].buckets[rand.Uint64()&d.ht[0].sizemask]
		}
	}
	chainLen := 0
	for he := e; he != nil; he = he.next {
		chainLen++
	}
	for i := rand.IntN(chainLen); i > 0; i-- {
		e = e.next
	}
	return e
}

// SomeKeys collects up to count entries by walking contiguous buckets from a
// random start, taking every element of each nonempty bucket it meets and
// jumping to a new random position when it hits a long run of empties. It is
// much faster than count draws of RandomKey and spreads no worse, but it may
// return fewer entries than asked (and adjacent chain members together), so
// it suits sampling, not uniform selection.
func (d *Dict) SomeKeys(count int) []*Entry {
	if count > d.Len() {
		count = d.Len()
	}
	if count <= 0 {
		return nil
	}
	maxSteps := count * 10
	for i := 0; i < count; i++ {
		if !d.Rehashing() {
			break
		}
		rehashStep(d)
	}
	tables := 1
	if d.Rehashing() {
		tables = 2
	}
	maxMask := d.ht[0].sizemask
	if tables > 1 && d.ht[1].sizemask > maxMask {
		maxMask = d.ht[1].sizemask
	}
	entries := make([]*Entry, 0, count)
	i := rand.Uint64() & maxMask
	emptyRun := 0
	for len(entries) < count && maxSteps > 0 {
		maxSteps--
		for j := 0; j < tables; j++ {
			// While migrating there are no entries in ht[0] below rehashidx:
			// skip that range, or hop straight to rehashidx once the index
			// overruns the smaller ht[1].
			if tables == 2 && j == 0 && i < uint64(d.rehashidx) {
				if i >= d.ht[1].size {
					i = uint64(d.rehashidx)
				} else {
					continue
				}
			}
			if i >= d.ht[j].size {
				continue
			}
			e := d.ht[j].buckets[i]
			if e == nil {
				emptyRun++
				if emptyRun >= 5 && emptyRun > count {
					i = rand.Uint64() & maxMask
					emptyRun = 0
				}
				continue
			}
			emptyRun = 0
			for e != nil {
				entries = append(entries, e)
				if len(entries) == count {
					return entries
				}
				e = e.next
			}
		}
		i = (i + 1) & maxMask
	}
	return entries
}

// FairRandomKey samples a batch with SomeKeys and picks one of it uniformly,
// which counters the chain-length bias of RandomKey at roughly the cost of
// one SomeKeys walk. It returns nil only when the dict is empty.
func (d *Dict) FairRandomKey() *Entry {
	entries := d.SomeKeys(fairSamples)
	// The walk can come home empty on a sparse table; fall back rather than
	// report nothing.
	if len(entries) == 0 {
		return d.RandomKey()
	}
	return entries[rand.IntN(len(entries))]
}
