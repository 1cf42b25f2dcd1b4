package domain

// ResultIndex maps file IDs to the events received for them.
// Keys are unique and keep insertion order. A ResultIndex is treated as
// immutable: every mutating method returns a new index and leaves the
// receiver untouched, so a level's index is only ever replaced wholesale.
type ResultIndex struct {
	keys    []string
	entries map[string][]MatchEvent
}

// NewResultIndex returns an empty index
func NewResultIndex() *ResultIndex {
	return &ResultIndex{entries: map[string][]MatchEvent{}}
}

// Len returns the number of files in the index
func (r *ResultIndex) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the file IDs in insertion order
func (r *ResultIndex) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the events for fileID
func (r *ResultIndex) Get(fileID string) ([]MatchEvent, bool) {
	if r == nil {
		return nil, false
	}
	ev, ok := r.entries[fileID]
	return ev, ok
}

// Has reports whether fileID is present
func (r *ResultIndex) Has(fileID string) bool {
	_, ok := r.Get(fileID)
	return ok
}

// FileIDs returns the key set
func (r *ResultIndex) FileIDs() Set {
	s := make(Set, r.Len())
	if r == nil {
		return s
	}
	for _, k := range r.keys {
		s.Add(k)
	}
	return s
}

// MatchCount returns the cumulative number of matches recorded for fileID
func (r *ResultIndex) MatchCount(fileID string) int {
	ev, _ := r.Get(fileID)
	return countMatches(ev)
}

// HasError reports whether any event for fileID carries an error
func (r *ResultIndex) HasError(fileID string) bool {
	ev, _ := r.Get(fileID)
	for _, e := range ev {
		if e.Err != nil {
			return true
		}
	}
	return false
}

// Stats sums matches over all files. A file counts as "with matches" only
// when it has at least one match.
func (r *ResultIndex) Stats() Stats {
	var s Stats
	if r == nil {
		return s
	}
	for _, k := range r.keys {
		if n := countMatches(r.entries[k]); n > 0 {
			s.NumMatches += n
			s.NumFilesWithMatches++
		}
	}
	return s
}

// clone copies the key slice and the map header. Event slices are shared
// and must be copied before append.
func (r *ResultIndex) clone() *ResultIndex {
	c := &ResultIndex{
		keys:    make([]string, 0, r.Len()+1),
		entries: make(map[string][]MatchEvent, r.Len()+1),
	}
	if r == nil {
		return c
	}
	c.keys = append(c.keys, r.keys...)
	for k, v := range r.entries {
		c.entries[k] = v
	}
	return c
}

// Append returns a new index with events appended to their files.
// New files are added at the end in the order they first appear.
func (r *ResultIndex) Append(events ...MatchEvent) *ResultIndex {
	c := r.clone()
	for _, ev := range events {
		prev, ok := c.entries[ev.FileID]
		if !ok {
			c.keys = append(c.keys, ev.FileID)
		}
		merged := make([]MatchEvent, 0, len(prev)+1)
		merged = append(merged, prev...)
		c.entries[ev.FileID] = append(merged, ev)
	}
	return c
}

// Delete returns a new index without fileID
func (r *ResultIndex) Delete(fileID string) *ResultIndex {
	if !r.Has(fileID) {
		return r
	}
	c := r.clone()
	delete(c.entries, fileID)
	for i, k := range c.keys {
		if k == fileID {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return c
}

// WithSnapshot returns a new index where every event of fileID carries
// content as its source snapshot
func (r *ResultIndex) WithSnapshot(fileID, content string) *ResultIndex {
	ev, ok := r.Get(fileID)
	if !ok {
		return r
	}
	c := r.clone()
	updated := make([]MatchEvent, len(ev))
	for i, e := range ev {
		e.SourceSnapshot = content
		updated[i] = e
	}
	c.entries[fileID] = updated
	return c
}

func countMatches(events []MatchEvent) int {
	n := 0
	for _, e := range events {
		n += len(e.Matches)
	}
	return n
}
