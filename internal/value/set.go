package value

type setEntry struct {
	key   *ObjString
	state entryState
}

// Set is the string-only-membership variant of Table: same open-addressing,
// tombstone-on-delete scheme, but with no associated value. Used for a
// class's permitted-field-name schema.
type Set struct {
	count   int
	entries []setEntry
}

// NewSet returns an empty set.
func NewSet() *Set { return &Set{} }

func (s *Set) findEntry(entries []setEntry, key *ObjString) *setEntry {
	capacity := uint32(len(entries))
	idx := key.Hash % capacity
	var tombstone *setEntry
	for {
		entry := &entries[idx]
		switch entry.state {
		case entryEmpty:
			if tombstone != nil {
				return tombstone
			}
			return entry
		case entryTombstone:
			if tombstone == nil {
				tombstone = entry
			}
		default:
			if entry.key == key {
				return entry
			}
		}
		idx = (idx + 1) % capacity
	}
}

func (s *Set) adjustCapacity(capacity int) {
	entries := make([]setEntry, capacity)
	s.count = 0
	for i := range s.entries {
		old := &s.entries[i]
		if old.state != entryLive {
			continue
		}
		dst := s.findEntry(entries, old.key)
		dst.key = old.key
		dst.state = entryLive
		s.count++
	}
	s.entries = entries
}

// Contains reports whether key is a member.
func (s *Set) Contains(key *ObjString) bool {
	if s.count == 0 {
		return false
	}
	entry := s.findEntry(s.entries, key)
	return entry.state == entryLive
}

// Insert adds key, returning true if it was not already a member.
func (s *Set) Insert(key *ObjString) bool {
	if float64(s.count+1) > float64(len(s.entries))*tableMaxLoad {
		capacity := growCapacity(len(s.entries))
		s.adjustCapacity(capacity)
	}
	entry := s.findEntry(s.entries, key)
	isNew := entry.state != entryLive
	if isNew && entry.state == entryEmpty {
		s.count++
	}
	entry.key = key
	entry.state = entryLive
	return isNew
}

// Len reports the number of members.
func (s *Set) Len() int { return s.count }

// Each calls fn once for every member, in no particular order.
func (s *Set) Each(fn func(key *ObjString)) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.state == entryLive {
			fn(e.key)
		}
	}
}
