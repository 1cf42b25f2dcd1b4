package domain

import "errors"

// Errors returned by Reorder. Callers treat both as a rejected command.
var (
	ErrNodeMissing = errors.New("node not present in tree")
	ErrNotSiblings = errors.New("nodes do not share a parent")
)

// Placement says on which side of the target a dragged node lands
type Placement int

const (
	PlaceBefore Placement = iota
	PlaceAfter
)

func (p Placement) String() string {
	if p == PlaceAfter {
		return "after"
	}
	return "before"
}

// Reorder moves source next to target and returns the updated order.
// Source and target must be siblings of the same kind; otherwise the
// original order is returned untouched together with an error. The
// siblings of the shared parent are re-ranked 0..n-1 so no sibling is lost.
func Reorder(root *Folder, order OrderOverride, source, target string, place Placement) (OrderOverride, error) {
	if source == target {
		return order, nil
	}
	sp, sn, ok := FindParent(root, source)
	if !ok {
		return order, ErrNodeMissing
	}
	tp, tn, ok := FindParent(root, target)
	if !ok {
		return order, ErrNodeMissing
	}
	if sp != tp || IsDir(sn) != IsDir(tn) {
		return order, ErrNotSiblings
	}

	seq := make([]string, 0, len(sp.Children))
	for _, c := range sp.Children {
		if IsDir(c) == IsDir(sn) && NodePath(c) != source {
			seq = append(seq, NodePath(c))
		}
	}
	out := make([]string, 0, len(seq)+1)
	for _, p := range seq {
		if p == target && place == PlaceBefore {
			out = append(out, source)
		}
		out = append(out, p)
		if p == target && place == PlaceAfter {
			out = append(out, source)
		}
	}

	next := order.Clone()
	for i, p := range out {
		next[p] = i
	}
	return next, nil
}

// SiblingOrder lists the paths of a folder's children in display order
func SiblingOrder(f *Folder) []string {
	out := make([]string, len(f.Children))
	for i, c := range f.Children {
		out[i] = NodePath(c)
	}
	return out
}
