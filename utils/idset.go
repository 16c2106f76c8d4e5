package utils

// IDSet is an append-only set of record identifiers. Not safe for
// concurrent use; the extraction loop owns it exclusively.
type IDSet struct {
	seen map[int64]struct{}
}

// NewIDSet creates an empty set
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[int64]struct{})}
}

// Add returns true if the id is new (not seen before), false if duplicate
func (s *IDSet) Add(id int64) bool {
	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Len returns the number of tracked ids
func (s *IDSet) Len() int {
	return len(s.seen)
}
