package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docadapt/internal/doctree"
)

var (
	ErrEmptySelection = errors.New("no units selected")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrInvalidIndex   = errors.New("invalid unit index")
	ErrDuplicateUnit  = errors.New("duplicate unit path")
)

// Set is an ordered selection of units with unique paths.
type Set []doctree.Unit

// Paths returns the unit paths in selection order.
func (s Set) Paths() []string {
	out := make([]string, len(s))
	for i, u := range s {
		out[i] = u.Path
	}
	return out
}

// Leaves lists every leaf unit of the outline in outline order. A part with
// no chapters contributes nothing. It never fails; an outline without
// leaves yields an empty slice.
func Leaves(o *doctree.Outline) []doctree.Unit {
	units := []doctree.Unit{}
	for _, child := range o.Children {
		walkNode(child, nil, &units)
	}
	return units
}

// walkNode visits nodes depth first, carrying the breadcrumb down.
func walkNode(node *doctree.Node, breadcrumb []string, units *[]doctree.Unit) {
	bc := make([]string, 0, len(breadcrumb)+1)
	bc = append(bc, breadcrumb...)
	bc = append(bc, node.Title)

	if node.IsLeaf() {
		*units = append(*units, doctree.Unit{
			Path:   doctree.JoinPath(bc),
			Title:  node.Title,
			Body:   node.Text,
			Tokens: EstimateTokens(node.Text),
			Crumbs: bc,
		})
		return
	}
	for _, child := range node.Children {
		walkNode(child, bc, units)
	}
}

// All selects every leaf unit.
func All(o *doctree.Outline) (Set, error) {
	return build(Leaves(o))
}

// ByPaths selects units by path in caller order. Repeated paths are kept
// once; a path not in the outline is ErrUnknownUnit.
func ByPaths(o *doctree.Outline, paths []string) (Set, error) {
	byPath := make(map[string]doctree.Unit)
	for _, u := range Leaves(o) {
		byPath[u.Path] = u
	}

	seen := make(map[string]bool, len(paths))
	units := make([]doctree.Unit, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		u, ok := byPath[p]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, p)
		}
		seen[p] = true
		units = append(units, u)
	}
	return build(units)
}

// ParseIndices parses a comma-separated list of positive integers, such
// as "1, 2,3". Blank entries are ignored.
func ParseIndices(s string) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, tok)
		}
		out = append(out, n)
	}
	return out, nil
}

// ByIndices selects leaf units by 1-based position in outline order.
// Repeated indices are kept once.
func ByIndices(o *doctree.Outline, indices []int) (Set, error) {
	leaves := Leaves(o)
	seen := make(map[int]bool, len(indices))
	units := make([]doctree.Unit, 0, len(indices))
	for _, i := range indices {
		if i < 1 || i > len(leaves) {
			return nil, fmt.Errorf("%w: %d (outline has %d units)", ErrInvalidIndex, i, len(leaves))
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		units = append(units, leaves[i-1])
	}
	return build(units)
}

// LetterTitle is the unit title for a letter number.
func LetterTitle(n int) string {
	return "Letter " + strconv.Itoa(n)
}

// Letters selects remote letters by number. Bodies are left empty and
// loaded lazily through the unit's Ref.
func Letters(numbers []int) (Set, error) {
	seen := make(map[int]bool, len(numbers))
	units := make([]doctree.Unit, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		title := LetterTitle(n)
		units = append(units, doctree.Unit{
			Path:   title,
			Title:  title,
			Ref:    strconv.Itoa(n),
			Crumbs: []string{title},
		})
	}
	return build(units)
}

// LetterRange selects letters 1 through max.
func LetterRange(max int) (Set, error) {
	numbers := make([]int, 0, max)
	for i := 1; i <= max; i++ {
		numbers = append(numbers, i)
	}
	return Letters(numbers)
}

// build enforces the selection invariants: non-empty, unique paths.
func build(units []doctree.Unit) (Set, error) {
	if len(units) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if seen[u.Path] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateUnit, u.Path)
		}
		seen[u.Path] = true
	}
	return Set(units), nil
}
