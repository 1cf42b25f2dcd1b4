package viewport

import "slices"

// zBase minus depth gives the paint order of a pinned header
const zBase = 100

// StickyItem is a header pinned at Top, relative to the viewport top
type StickyItem struct {
	Row    int
	Top    int
	ZIndex int
}

// ResolveSticky computes the headers pinned at the top of the viewport.
// headerHeight is the height of one pinned slot. Items are ordered by row
// index; each item's top is strictly below its nearest pinned ancestor's
// and shallower headers get higher z-indexes. A header resting in its slot
// sits a full slot below its parent. While it slides out it may overlap the
// parent and paints beneath it.
func ResolveSticky(l *Layout, scrollTop, viewportHeight, headerHeight int) []StickyItem {
	if l.Len() == 0 || headerHeight <= 0 {
		return nil
	}
	scrollTop = max(0, min(scrollTop, l.TotalHeight()-1))
	H := headerHeight

	first := l.RowAt(scrollTop)
	context := first
	for context >= 0 && l.Row(context).IsHeader() && !l.IsActiveHeader(context) {
		context = l.Row(context).Parent
	}

	// ancestors of the context row, root first
	var candidates []int
	if context >= 0 {
		if l.IsActiveHeader(context) {
			candidates = append(candidates, context)
		}
		for p := l.Row(context).Parent; p >= 0; p = l.Row(p).Parent {
			candidates = append(candidates, p)
		}
	}

	// headers below the top whose natural position already reached their slot
	bottom := scrollTop + viewportHeight
	for j := first + 1; j < l.Len() && l.OffsetOf(j) < bottom; j++ {
		if !l.IsActiveHeader(j) {
			continue
		}
		if l.OffsetOf(j)-scrollTop <= l.Row(j).Depth*H {
			candidates = append(candidates, j)
		}
	}

	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	items := make([]StickyItem, 0, len(candidates))
	for _, row := range candidates {
		depth := l.Row(row).Depth
		top := depth * H
		// retract above the first row that ends this header's subtree
		if end := l.SubtreeEnd(row); end < l.Len() {
			if natural := l.OffsetOf(end) - scrollTop; natural < top+H {
				top = natural - H
			}
		}
		items = append(items, StickyItem{Row: row, Top: top, ZIndex: zBase - depth})
	}

	return cascade(l, items, H)
}

// cascade clamps every item to its nearest pinned ancestor and drops items
// that are fully covered or scrolled out
func cascade(l *Layout, items []StickyItem, H int) []StickyItem {
	kept := items[:0]
	for _, it := range items {
		depth := l.Row(it.Row).Depth
		parent := -1
		for k := len(kept) - 1; k >= 0; k-- {
			if l.Row(kept[k].Row).Depth < depth {
				parent = k
				break
			}
		}
		if parent >= 0 {
			p := kept[parent]
			it.Top = min(it.Top, p.Top+(depth-l.Row(p.Row).Depth)*H)
			if it.Top <= p.Top {
				continue
			}
		}
		if it.Top+H <= 0 {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// StickyHeight is the viewport height covered by the pinned headers
func StickyHeight(items []StickyItem, headerHeight int) int {
	h := 0
	for _, it := range items {
		h = max(h, it.Top+headerHeight)
	}
	return h
}
