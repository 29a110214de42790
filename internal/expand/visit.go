package expand

// visitKey identifies a record within its table. Records in different
// tables may share an identifier without colliding.
type visitKey struct {
	table string
	id    string
}

// visitSet tracks which records one run has already expanded. Each top
// level call owns a fresh set; sharing one across runs would make
// unrelated roots look like cycles of each other.
//
// AL-P3-F1-T2: per-run visit scoping
type visitSet struct {
	seen map[visitKey]bool
}

func newVisitSet() *visitSet {
	return &visitSet{seen: make(map[visitKey]bool)}
}

// Mark records the (table, id) pair and reports whether it was new.
func (v *visitSet) Mark(table, id string) bool {
	key := visitKey{table: table, id: id}
	if v.seen[key] {
		return false
	}
	v.seen[key] = true
	return true
}

// Seen reports whether the pair was already expanded this run.
func (v *visitSet) Seen(table, id string) bool {
	return v.seen[visitKey{table: table, id: id}]
}

// Len returns the number of distinct records marked so far.
func (v *visitSet) Len() int {
	return len(v.seen)
}
