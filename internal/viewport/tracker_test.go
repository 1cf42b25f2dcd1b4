package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerHooks(t *testing.T) {
	l := NewLayout(uniformRows(6, 10))

	var entered []int
	var left []string
	tr := &Tracker{
		OnRowEnter: func(key string, row int) { entered = append(entered, row) },
		OnRowLeave: func(key string) { left = append(left, key) },
	}

	tr.Update(l, Window{0, 2})
	assert.Equal(t, []int{0, 1, 2}, entered)
	assert.Empty(t, left)

	entered = nil
	tr.Update(l, Window{2, 4})
	assert.Equal(t, []int{3, 4}, entered)
	assert.ElementsMatch(t, []string{"f:f0", "f:f1"}, left)
	assert.True(t, tr.Visible("f:f2"))
	assert.False(t, tr.Visible("f:f0"))

	// Same window again fires nothing
	entered, left = nil, nil
	tr.Update(l, Window{2, 4})
	assert.Empty(t, entered)
	assert.Empty(t, left)

	// Reset forgets rows silently, so they enter again
	tr.Reset()
	tr.Update(l, Window{2, 2})
	assert.Equal(t, []int{2}, entered)
	assert.Empty(t, left)
}

func TestTrackerWithoutHooks(t *testing.T) {
	l := NewLayout(uniformRows(3, 10))
	tr := &Tracker{}
	tr.Update(l, Window{0, 2})
	tr.Update(l, NewLayout(nil).VisibleWindow(0, 10, 0))
	assert.False(t, tr.Visible("f:f0"))
}
