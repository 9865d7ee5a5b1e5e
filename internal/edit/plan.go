// Package edit defines the language-neutral edit plan model: positions,
// text edits, refactoring intents, and the invariant-checking plan
// container shared by the planner, updater, and applier.
//
// Nothing in this package touches disk.
package edit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"rfx/internal/errors"
)

// TextEdit replaces the text covered by Range in File with NewText.
// A zero-width range is an insertion.
type TextEdit struct {
	File    string `json:"file"`
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// Plan is an ordered mapping from file path to a sequence of disjoint
// TextEdits, plus the intent it fulfills and the checksums of the content
// each file's edits were computed against. Edits within one file are kept
// sorted ascending by range start; applying them in descending order never
// invalidates a sibling's range.
type Plan struct {
	Intent    Intent
	CreatedAt time.Time

	order     []string
	edits     map[string][]TextEdit
	Checksums map[string]string
}

// NewPlan creates an empty plan for the given intent.
func NewPlan(intent Intent) *Plan {
	return &Plan{
		Intent:    intent,
		CreatedAt: time.Now().UTC(),
		edits:     make(map[string][]TextEdit),
		Checksums: make(map[string]string),
	}
}

// AddFileEdits appends edits for one file, enforcing the disjointness
// invariant against both the new edits and any already recorded for the
// file. Fails with OVERLAPPING_EDITS; the plan is left unchanged on error.
func (p *Plan) AddFileEdits(file string, edits []TextEdit) error {
	if len(edits) == 0 {
		return nil
	}

	merged := append([]TextEdit{}, p.edits[file]...)
	for _, e := range edits {
		if !e.Range.IsValid() {
			return errors.New(errors.OverlappingEdits,
				fmt.Sprintf("edit range start after end at %d:%d", e.Range.Start.Line, e.Range.Start.Character)).
				WithFile(file)
		}
		e.File = file
		merged = append(merged, e)
	}

	sortEdits(merged)
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Range.Overlaps(merged[i].Range) {
			return errors.New(errors.OverlappingEdits,
				fmt.Sprintf("edits at %d:%d and %d:%d intersect",
					merged[i-1].Range.Start.Line, merged[i-1].Range.Start.Character,
					merged[i].Range.Start.Line, merged[i].Range.Start.Character)).
				WithFile(file)
		}
	}

	if _, seen := p.edits[file]; !seen {
		p.order = append(p.order, file)
	}
	p.edits[file] = merged
	return nil
}

// SetChecksum records the hash of the content the file's edits were
// computed against.
func (p *Plan) SetChecksum(file, sum string) {
	p.Checksums[file] = sum
}

// Files returns the plan's file paths in insertion order.
func (p *Plan) Files() []string {
	return append([]string{}, p.order...)
}

// FilesSorted returns the plan's file paths in lexical order, the order
// used for committing and for reproducible diagnostics.
func (p *Plan) FilesSorted() []string {
	files := p.Files()
	sort.Strings(files)
	return files
}

// Edits returns the recorded edits for a file, sorted ascending.
func (p *Plan) Edits(file string) []TextEdit {
	return append([]TextEdit{}, p.edits[file]...)
}

// IsEmpty reports whether the plan contains no edits.
func (p *Plan) IsEmpty() bool {
	return len(p.order) == 0
}

// Merge combines p with other into a new plan carrying p's intent.
// Fails with CONFLICTING_INTENT when the two plans touch the same file
// with overlapping ranges; neither input is modified.
func (p *Plan) Merge(other *Plan) (*Plan, error) {
	out := NewPlan(p.Intent)
	out.CreatedAt = p.CreatedAt

	for _, file := range p.order {
		if err := out.AddFileEdits(file, p.edits[file]); err != nil {
			return nil, err
		}
	}
	for file, sum := range p.Checksums {
		out.SetChecksum(file, sum)
	}

	for _, file := range other.order {
		if err := out.AddFileEdits(file, other.edits[file]); err != nil {
			if errors.HasCode(err, errors.OverlappingEdits) {
				return nil, errors.New(errors.ConflictingIntent,
					"merged plans touch overlapping ranges").WithFile(file)
			}
			return nil, err
		}
	}
	for file, sum := range other.Checksums {
		if existing, ok := out.Checksums[file]; ok && existing != sum {
			return nil, errors.New(errors.ConflictingIntent,
				"merged plans were computed against different content").WithFile(file)
		}
		out.SetChecksum(file, sum)
	}

	return out, nil
}

// Checksum returns the hex SHA-256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func sortEdits(edits []TextEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if c := edits[i].Range.Start.Compare(edits[j].Range.Start); c != 0 {
			return c < 0
		}
		return edits[i].Range.End.Before(edits[j].Range.End)
	})
}
