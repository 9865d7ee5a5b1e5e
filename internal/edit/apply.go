package edit

import (
	"fmt"
	"sort"
)

// ApplyEdits returns content with all edits applied. Edits must be disjoint
// (the Plan container guarantees this); they are applied in descending range
// order so earlier splices never shift later ranges.
func ApplyEdits(content string, edits []TextEdit) (string, error) {
	if len(edits) == 0 {
		return content, nil
	}

	descending := append([]TextEdit{}, edits...)
	sort.SliceStable(descending, func(i, j int) bool {
		// Equal starts: splice the wider edit first so an insertion at a
		// replacement's start lands before the replacement text, not inside
		// the range it removes.
		if descending[i].Range.Start == descending[j].Range.Start {
			return descending[j].Range.End.Before(descending[i].Range.End)
		}
		return descending[j].Range.Start.Before(descending[i].Range.Start)
	})

	out := content
	for _, e := range descending {
		start, err := ByteOffset(out, e.Range.Start)
		if err != nil {
			return "", fmt.Errorf("edit start out of range: %w", err)
		}
		end, err := ByteOffset(out, e.Range.End)
		if err != nil {
			return "", fmt.Errorf("edit end out of range: %w", err)
		}
		if end < start {
			return "", fmt.Errorf("edit end %d before start %d", end, start)
		}
		out = out[:start] + e.NewText + out[end:]
	}

	return out, nil
}
