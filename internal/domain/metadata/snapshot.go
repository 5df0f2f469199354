package metadata

import "time"

// Snapshot is an immutable view of every known collection. Safe for concurrent reads.
// A nil *Snapshot behaves as an empty one.
type Snapshot struct {
	order   []string
	byName  map[string]CollectionMetadata
	builtAt time.Time
}

// NewSnapshot builds a snapshot; collection order is preserved.
func NewSnapshot(collections []CollectionMetadata, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		order:   make([]string, 0, len(collections)),
		byName:  make(map[string]CollectionMetadata, len(collections)),
		builtAt: builtAt,
	}
	for _, c := range collections {
		if _, dup := s.byName[c.Name]; dup {
			continue
		}
		s.order = append(s.order, c.Name)
		s.byName[c.Name] = c
	}
	return s
}

// Names returns collection names in refresh order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns one collection's metadata.
func (s *Snapshot) Get(name string) (CollectionMetadata, bool) {
	if s == nil {
		return CollectionMetadata{}, false
	}
	c, ok := s.byName[name]
	return c, ok
}

// Has reports whether the collection is known.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Collections returns all collections in refresh order.
func (s *Snapshot) Collections() []CollectionMetadata {
	if s == nil {
		return nil
	}
	out := make([]CollectionMetadata, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// Len returns the number of collections.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// BuiltAt returns the refresh time.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}
