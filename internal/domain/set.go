package domain

import "sort"

// Set is a string set used for expansion state and refinement scopes
type Set map[string]struct{}

// NewSet builds a set from the given keys
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set contains nothing
func (s Set) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k
func (s Set) Add(k string) {
	s[k] = struct{}{}
}

// Remove deletes k
func (s Set) Remove(k string) {
	delete(s, k)
}

// Toggle flips membership and returns the new state
func (s Set) Toggle(k string) bool {
	if s.Has(k) {
		delete(s, k)
		return false
	}
	s[k] = struct{}{}
	return true
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Sorted returns the keys in lexicographic order
func (s Set) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
