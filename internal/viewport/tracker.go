package viewport

// Tracker diffs successive visible windows by row key so a presentation
// layer can attach enter/leave animations. It holds no rendering state.
type Tracker struct {
	OnRowEnter func(key string, row int)
	OnRowLeave func(key string)

	visible map[string]int
}

// Update records the rows of w and fires hooks for rows that appeared or
// disappeared since the previous call. Leaves are reported before enters.
func (t *Tracker) Update(l *Layout, w Window) {
	next := make(map[string]int, w.Len())
	for i := w.Start; i <= w.End && i < l.Len(); i++ {
		next[l.Row(i).Node.Key()] = i
	}
	for key := range t.visible {
		if _, ok := next[key]; !ok && t.OnRowLeave != nil {
			t.OnRowLeave(key)
		}
	}
	if t.OnRowEnter != nil {
		for i := w.Start; i <= w.End && i < l.Len(); i++ {
			key := l.Row(i).Node.Key()
			if _, ok := t.visible[key]; !ok {
				t.OnRowEnter(key, i)
			}
		}
	}
	t.visible = next
}

// Visible reports whether the row with key was in the last window
func (t *Tracker) Visible(key string) bool {
	_, ok := t.visible[key]
	return ok
}

// Reset forgets every tracked row without firing hooks
func (t *Tracker) Reset() {
	t.visible = nil
}
