package dedup

// Index is the run-scoped set of identity keys for all known remote entries:
// those that existed when the export run started plus those created during
// the run. Keys are only ever added, never removed. The index is single-run,
// single-writer state; it needs no locking.
type Index struct {
	keys map[Key]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{keys: make(map[Key]struct{})}
}

// Add inserts a key into the index.
func (ix *Index) Add(k Key) {
	ix.keys[k] = struct{}{}
}

// AddAll inserts all given keys.
func (ix *Index) AddAll(keys []Key) {
	for _, k := range keys {
		ix.Add(k)
	}
}

// Contains reports whether the key is present.
func (ix *Index) Contains(k Key) bool {
	_, ok := ix.keys[k]
	return ok
}

// Match returns the first of the given keys present in the index. The input
// order is the tier order, so the returned key's kind is the skip reason.
func (ix *Index) Match(keys []Key) (Key, bool) {
	for _, k := range keys {
		if ix.Contains(k) {
			return k, true
		}
	}
	return Key{}, false
}

// Len returns the number of keys in the index.
func (ix *Index) Len() int {
	return len(ix.keys)
}
