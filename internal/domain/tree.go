package domain

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Node is one entry of the result tree: *Folder, *File or *MatchRow
type Node interface {
	// Key identifies the node across rebuilds
	Key() string
	isNode()
}

// Folder groups files and folders under a common path prefix
type Folder struct {
	Name     string
	RelPath  string // "" for the root
	Children []Node
	Stats    Stats
}

// File is a leaf holding every event received for one file ID
type File struct {
	Name         string
	RelPath      string
	FileID       string
	AbsolutePath string
	Results      []MatchEvent
	Stats        Stats
}

// MatchRow is a synthetic leaf for one match inside an expanded file
type MatchRow struct {
	FileID string
	Index  int // position among all matches of the file
	Match  Match
	Text   string
	LineNo int
	Line   string
	Lines  int // newlines spanned by the match
}

func (f *Folder) Key() string   { return "d:" + f.RelPath }
func (f *File) Key() string     { return "f:" + f.FileID }
func (m *MatchRow) Key() string { return "m:" + m.FileID + "#" + strconv.Itoa(m.Index) }

func (*Folder) isNode()   {}
func (*File) isNode()     {}
func (*MatchRow) isNode() {}

// HasMatches reports whether the file has at least one match
func (f *File) HasMatches() bool {
	return f.Stats.NumMatches > 0
}

// Err returns the first error recorded for the file, if any
func (f *File) Err() *ErrorInfo {
	for _, e := range f.Results {
		if e.Err != nil {
			return e.Err
		}
	}
	return nil
}

// IsDir reports whether n is a folder
func IsDir(n Node) bool {
	_, ok := n.(*Folder)
	return ok
}

// NodePath returns the path a node is ordered and expanded by
func NodePath(n Node) string {
	switch v := n.(type) {
	case *Folder:
		return v.RelPath
	case *File:
		return v.RelPath
	case *MatchRow:
		return v.FileID
	}
	return ""
}

// NodeName returns the display name of a node
func NodeName(n Node) string {
	switch v := n.(type) {
	case *Folder:
		return v.Name
	case *File:
		return v.Name
	case *MatchRow:
		return v.Text
	}
	return ""
}

// OrderOverride maps a node path to its rank among its siblings
type OrderOverride map[string]int

// UnrankedSentinel is the rank of paths missing from an OrderOverride
const UnrankedSentinel = math.MaxInt32

// Rank returns the rank of p, or UnrankedSentinel
func (o OrderOverride) Rank(p string) int {
	if r, ok := o[p]; ok {
		return r
	}
	return UnrankedSentinel
}

// Clone returns an independent copy
func (o OrderOverride) Clone() OrderOverride {
	c := make(OrderOverride, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// BuildTree converts an index into a folder tree rooted at rootPath.
// The tree is built fresh on every call and sorted recursively.
func BuildTree(index *ResultIndex, rootPath string, order OrderOverride) *Folder {
	root := &Folder{Name: rootName(rootPath)}
	folders := map[string]*Folder{"": root}
	files := map[string]*File{}

	for _, id := range index.Keys() {
		events, _ := index.Get(id)
		rel, ok := ResolvePath(rootPath, id)
		var segments []string
		if ok {
			segments = SplitPath(rel)
		}
		if len(segments) == 0 {
			rel, segments = id, []string{id}
		}

		n := countMatches(events)
		fileStats := Stats{NumMatches: n}
		if n > 0 {
			fileStats.NumFilesWithMatches = 1
		}

		parent := root
		parent.Stats = parent.Stats.Add(fileStats)
		for i := range len(segments) - 1 {
			p := strings.Join(segments[:i+1], "/")
			f, exists := folders[p]
			if !exists {
				f = &Folder{Name: segments[i], RelPath: p}
				folders[p] = f
				parent.Children = append(parent.Children, f)
			}
			f.Stats = f.Stats.Add(fileStats)
			parent = f
		}

		if existing, dup := files[rel]; dup {
			// two identifiers for the same location share one leaf
			existing.Results = append(existing.Results, events...)
			wasCounted := existing.Stats.NumFilesWithMatches
			existing.Stats.NumMatches += n
			if existing.Stats.NumMatches > 0 {
				existing.Stats.NumFilesWithMatches = 1
			}
			if wasCounted == 1 && n > 0 {
				uncountFile(folders, segments)
			}
			continue
		}
		leaf := &File{
			Name:         segments[len(segments)-1],
			RelPath:      rel,
			FileID:       id,
			AbsolutePath: AbsolutePath(rootPath, id),
			Results:      slices.Clone(events),
			Stats:        fileStats,
		}
		files[rel] = leaf
		parent.Children = append(parent.Children, leaf)
	}

	SortTree(root, order)
	return root
}

// uncountFile removes the duplicate file count added for an already counted leaf
func uncountFile(folders map[string]*Folder, segments []string) {
	folders[""].Stats.NumFilesWithMatches--
	for i := range len(segments) - 1 {
		folders[strings.Join(segments[:i+1], "/")].Stats.NumFilesWithMatches--
	}
}

func rootName(rootPath string) string {
	segs := SplitPath(NormalizeID(rootPath))
	if len(segs) == 0 {
		return "/"
	}
	return segs[len(segs)-1]
}

// SortTree orders every folder's children in place: folders before files,
// then by rank, then by name
func SortTree(f *Folder, order OrderOverride) {
	slices.SortStableFunc(f.Children, func(a, b Node) int {
		return compareNodes(a, b, order)
	})
	for _, c := range f.Children {
		if sub, ok := c.(*Folder); ok {
			SortTree(sub, order)
		}
	}
}

func compareNodes(a, b Node, order OrderOverride) int {
	da, db := IsDir(a), IsDir(b)
	if da != db {
		if da {
			return -1
		}
		return 1
	}
	ra, rb := order.Rank(NodePath(a)), order.Rank(NodePath(b))
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return strings.Compare(NodeName(a), NodeName(b))
}

// HasMatches is a Prune predicate hiding files without matches
func HasMatches(f *File) bool {
	return f.HasMatches()
}

// Prune returns a copy of the tree keeping only files accepted by keep.
// Folders left without file descendants are removed and stats are
// recomputed bottom-up. The root is always returned.
func Prune(root *Folder, keep func(*File) bool) *Folder {
	out, _ := pruneFolder(root, keep)
	if out == nil {
		return &Folder{Name: root.Name, RelPath: root.RelPath}
	}
	return out
}

func pruneFolder(f *Folder, keep func(*File) bool) (*Folder, bool) {
	out := &Folder{Name: f.Name, RelPath: f.RelPath}
	for _, c := range f.Children {
		switch v := c.(type) {
		case *Folder:
			if sub, ok := pruneFolder(v, keep); ok {
				out.Children = append(out.Children, sub)
				out.Stats = out.Stats.Add(sub.Stats)
			}
		case *File:
			if keep(v) {
				out.Children = append(out.Children, v)
				out.Stats = out.Stats.Add(v.Stats)
			}
		case *MatchRow:
		}
	}
	return out, len(out.Children) > 0
}

// Walk visits every folder and file depth-first in sorted order.
// Returning false from fn skips the node's children.
func Walk(f *Folder, fn func(n Node, depth int) bool) {
	walk(f, 0, fn)
}

func walk(f *Folder, depth int, fn func(Node, int) bool) {
	for _, c := range f.Children {
		if !fn(c, depth) {
			continue
		}
		if sub, ok := c.(*Folder); ok {
			walk(sub, depth+1, fn)
		}
	}
}

// Files returns every file of the tree in depth-first order
func Files(f *Folder) []*File {
	var out []*File
	Walk(f, func(n Node, _ int) bool {
		if file, ok := n.(*File); ok {
			out = append(out, file)
		}
		return true
	})
	return out
}

// FindParent returns the folder directly containing the node at path p
func FindParent(root *Folder, p string) (*Folder, Node, bool) {
	for _, c := range root.Children {
		if NodePath(c) == p {
			return root, c, true
		}
		if sub, ok := c.(*Folder); ok && (sub.RelPath == "" || strings.HasPrefix(p, sub.RelPath+"/")) {
			if parent, n, found := FindParent(sub, p); found {
				return parent, n, true
			}
		}
	}
	return nil, nil, false
}
