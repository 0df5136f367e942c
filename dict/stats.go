package dict

import (
	"fmt"
	"strings"
)

// histogramBins caps the chain-length distribution in Stats. Longer chains
// are tallied in the last bin, which the distribution listing leaves out;
// they still show through the slot counts and the max chain length.
const histogramBins = 50

// Stats returns a human-readable report on the main table and, while a
// migration is running, on the rehash target as well: capacity, element
// count, chain lengths and a chain-length distribution.
func (d *Dict) Stats() string {
	var b strings.Builder
	tableStats(&b, 0, &d.ht[0], "main hash table")
	if d.Rehashing() {
		tableStats(&b, 1, &d.ht[1], "rehashing target")
	}
	return b.String()
}

func tableStats(b *strings.Builder, id int, ht *table, name string) {
	// An empty table reports only the message, without its header line.
	if ht.used == 0 {
		b.WriteString("No stats available for empty dictionaries\n")
		return
	}

	var (
		nonempty uint64
		maxChain uint64
		totalLen uint64
		hist     [histogramBins]uint64
	)
	for i := uint64(0); i < ht.size; i++ {
		if ht.buckets[i] == nil {
			hist[0]++
			continue
		}
		nonempty++
		var chainLen uint64
		for e := ht.buckets[i]; e != nil; e = e.next {
			chainLen++
		}
		bin := chainLen
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		hist[bin]++
		totalLen += chainLen
		if chainLen > maxChain {
			maxChain = chainLen
		}
	}

	fmt.Fprintf(b, "Hash table %d stats (%s):\n", id, name)
	fmt.Fprintf(b, " table size: %d\n", ht.size)
	fmt.Fprintf(b, " number of elements: %d\n", ht.used)
	fmt.Fprintf(b, " different slots: %d\n", nonempty)
	fmt.Fprintf(b, " max chain length: %d\n", maxChain)
	fmt.Fprintf(b, " avg chain length (counted): %.02f\n", float64(totalLen)/float64(nonempty))
	fmt.Fprintf(b, " avg chain length (computed): %.02f\n", float64(ht.used)/float64(nonempty))
	fmt.Fprintf(b, " Chain length distribution:\n")
	for i := 0; i < histogramBins-1; i++ {
		if hist[i] == 0 {
			continue
		}
		fmt.Fprintf(b, "   %d: %d (%.02f%%)\n", i, hist[i], float64(hist[i])/float64(ht.size)*100)
	}
}
