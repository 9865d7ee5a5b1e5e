package edit

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-indexed location in a document. Character counts UTF-16
// code units, matching the LSP convention. This package is the single source
// of truth for that indexing; the CLI and MCP boundaries convert from the
// 1-indexed human-facing form before anything else sees a position.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span within one document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Compare returns -1, 0 or 1 as p sorts before, equal to, or after other.
func (p Position) Compare(other Position) int {
	switch {
	case p.Before(other):
		return -1
	case other.Before(p):
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the range is well-formed (Start <= End).
func (r Range) IsValid() bool {
	return !r.End.Before(r.Start)
}

// IsEmpty reports whether the range is zero-width (an insertion point).
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Overlaps reports whether two ranges intersect. Zero-width ranges at the
// same position count as overlapping: two insertions at one point have no
// defined order.
func (r Range) Overlaps(other Range) bool {
	if r.IsEmpty() && other.IsEmpty() {
		return r.Start == other.Start
	}
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// ByteOffset converts a Position to a byte offset within content. The
// character count is interpreted as UTF-16 code units within the line.
// Positions past the end of a line clamp to the line end; a line number one
// past the last line maps to len(content).
func ByteOffset(content string, pos Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("negative position %d:%d", pos.Line, pos.Character)
	}

	offset := 0
	line := 0
	for line < pos.Line {
		next := strings.IndexByte(content[offset:], '\n')
		if next < 0 {
			if line == pos.Line-1 && pos.Character == 0 {
				// One-past-the-last-line insertion point
				return len(content), nil
			}
			return 0, fmt.Errorf("line %d out of range", pos.Line)
		}
		offset += next + 1
		line++
	}

	// Walk the line rune by rune, counting UTF-16 code units
	units := 0
	for offset < len(content) {
		if units >= pos.Character {
			break
		}
		r, size := utf8.DecodeRuneInString(content[offset:])
		if r == '\n' {
			break // Clamp to line end
		}
		units += len(utf16.Encode([]rune{r}))
		offset += size
	}

	return offset, nil
}

// PositionAt converts a byte offset back to a Position.
func PositionAt(content string, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}

	line := strings.Count(content[:offset], "\n")
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1

	units := 0
	for _, r := range content[lineStart:offset] {
		units += len(utf16.Encode([]rune{r}))
	}

	return Position{Line: line, Character: units}
}
