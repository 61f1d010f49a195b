package scoring

import "hash/fnv"

// bigramWindow is a FIFO of recently observed token-pair hashes with a
// multiset index for constant-time membership.
type bigramWindow struct {
	ring  []uint64
	next  int
	full  bool
	count map[uint64]int
}

func newBigramWindow(size int) *bigramWindow {
	return &bigramWindow{ring: make([]uint64, size), count: make(map[uint64]int, size)}
}

// observe returns MaxRareBonus * unseen/total for the token bigrams, then
// records them. Fewer than two tokens earn no bonus.
func (w *bigramWindow) observe(tokens []string) float64 {
	if len(tokens) < 2 {
		return 0
	}
	hashes := make([]uint64, 0, len(tokens)-1)
	unseen := 0
	for i := 0; i+1 < len(tokens); i++ {
		h := bigramHash(tokens[i], tokens[i+1])
		if w.count[h] == 0 {
			unseen++
		}
		hashes = append(hashes, h)
	}
	for _, h := range hashes {
		w.push(h)
	}
	return MaxRareBonus * float64(unseen) / float64(len(hashes))
}

func (w *bigramWindow) push(h uint64) {
	if w.full {
		old := w.ring[w.next]
		if w.count[old]--; w.count[old] <= 0 {
			delete(w.count, old)
		}
	}
	w.ring[w.next] = h
	w.count[h]++
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
}

func bigramHash(a, b string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(b))
	return h.Sum64()
}
