package uiextract

import "sort"

// span is an inclusive byte range [start, end] where end is the offset of the
// closing brace, or len(src) when the braces never balance.
type span struct {
	start int
	end   int
}

func (s span) contains(off int) bool { return off >= s.start && off <= s.end }

func (s span) text(src string) string {
	end := s.end + 1
	if end > len(src) {
		end = len(src)
	}
	return src[s.start:end]
}

// scopeEnd walks src from the declaration at `from`, counting braces. It
// returns the offset where depth first returns to zero after the opening
// brace, or len(src) if that never happens.
func scopeEnd(src string, from int) int {
	depth := 0
	opened := false
	for i := from; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
			opened = true
		case '}':
			depth--
			if opened && depth == 0 {
				return i
			}
		}
	}
	return len(src)
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

func (l lineIndex) line(off int) int {
	return sort.SearchInts(l, off) + 1
}

type owned struct {
	name string
	span span
}

// innermost returns the name of the smallest span containing off.
func innermost(owners []owned, off int) string {
	best := -1
	for i, o := range owners {
		if !o.span.contains(off) {
			continue
		}
		if best < 0 || o.span.end-o.span.start < owners[best].span.end-owners[best].span.start {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return owners[best].name
}
