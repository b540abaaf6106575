package doctree

import "strings"

// PathSeparator joins ancestor titles into a unit path.
const PathSeparator = " > "

// HeadingKind is the structural level a heading marks.
type HeadingKind int

const (
	KindPart HeadingKind = iota
	KindChapter
	KindSection
)

func (k HeadingKind) String() string {
	switch k {
	case KindPart:
		return "part"
	case KindChapter:
		return "chapter"
	case KindSection:
		return "section"
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k HeadingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Heading is a structural marker found in source text.
type Heading struct {
	Kind   HeadingKind
	Label  string // Raw matched text, e.g. "Chapter 2"
	Offset int    // Byte offset of the label in the scanned text
}

// Outline is the root of a segmented document.
type Outline struct {
	Title    string  // Document title (from filename or caller)
	Children []*Node // Parts, or chapters when the source has no parts
}

// Node is a part, chapter or section in the outline.
// A part is always a branch, even with no children.
type Node struct {
	Kind     HeadingKind `json:"kind" yaml:"kind"`
	Title    string      `json:"title" yaml:"title"`
	Text     string      `json:"text,omitempty" yaml:"text,omitempty"`
	Children []*Node     `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node is an addressable unit.
func (n *Node) IsLeaf() bool {
	return n.Kind != KindPart && len(n.Children) == 0
}

// Unit is one selected segment, ready for adaptation.
type Unit struct {
	Path   string   // Breadcrumb joined with PathSeparator; unique within a run
	Title  string   // Own title (last breadcrumb element)
	Body   string   // Original text; empty when loaded lazily
	Ref    string   // Source reference for lazy loading (e.g. letter number)
	Tokens int      // Estimated token count of Body
	Crumbs []string // Ancestor titles down to the unit
}

// JoinPath builds a unit path from breadcrumb titles.
func JoinPath(crumbs []string) string {
	return strings.Join(crumbs, PathSeparator)
}

// Outcome is the terminal result for one unit.
type Outcome struct {
	Text   string `json:"text,omitempty"`
	Failed bool   `json:"failed"`
	Reason string `json:"reason,omitempty"`
}

// Adapted builds a successful outcome.
func Adapted(text string) Outcome {
	return Outcome{Text: text}
}

// Failure builds a failed outcome.
func Failure(reason string) Outcome {
	return Outcome{Failed: true, Reason: reason}
}

// Entry is one recorded unit outcome.
type Entry struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Outcome Outcome `json:"outcome"`
}

// Result accumulates outcomes in selection order. Once a path is recorded
// it is never overwritten.
type Result struct {
	entries []Entry
	index   map[string]int
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{index: make(map[string]int)}
}

// Record appends an outcome for path. It returns false if the path was
// already recorded in this run.
func (r *Result) Record(path, title string, o Outcome) bool {
	if _, ok := r.index[path]; ok {
		return false
	}
	r.index[path] = len(r.entries)
	r.entries = append(r.entries, Entry{Path: path, Title: title, Outcome: o})
	return true
}

// Get returns the outcome recorded for path.
func (r *Result) Get(path string) (Outcome, bool) {
	i, ok := r.index[path]
	if !ok {
		return Outcome{}, false
	}
	return r.entries[i].Outcome, true
}

// Entries returns a copy of all entries in recording order.
func (r *Result) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Result) Len() int {
	return len(r.entries)
}

// FailedUnit is a failed unit path with its reason.
type FailedUnit struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Summary is the user-facing tally of a finished batch.
type Summary struct {
	Succeeded int          `json:"succeeded"`
	Total     int          `json:"total"`
	Failures  []FailedUnit `json:"failures"`
}

// Summarize tallies the result.
func (r *Result) Summarize() Summary {
	s := Summary{Total: len(r.entries), Failures: []FailedUnit{}}
	for _, e := range r.entries {
		if e.Outcome.Failed {
			s.Failures = append(s.Failures, FailedUnit{Path: e.Path, Reason: e.Outcome.Reason})
			continue
		}
		s.Succeeded++
	}
	return s
}
