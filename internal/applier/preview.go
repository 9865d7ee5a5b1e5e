package applier

import (
	"context"

	"github.com/pmezard/go-difflib/difflib"

	"rfx/internal/edit"
)

// FilePreview is the projected outcome for one file in a dry run.
type FilePreview struct {
	File       string `json:"file"`
	NewContent string `json:"newContent"`
	Diff       string `json:"diff"`
}

// DryRunReport is the outcome of a preview: projected content and unified
// diffs per file, plus any conflicts an apply would hit right now. A
// preview never writes, so running it twice against an unchanged tree
// yields identical reports.
type DryRunReport struct {
	Files     []FilePreview   `json:"files"`
	Conflicts []edit.Conflict `json:"conflicts,omitempty"`
}

// Clean reports whether an apply of the same plan could proceed.
func (r *DryRunReport) Clean() bool {
	return len(r.Conflicts) == 0
}

// Preview runs the validation phase only and renders its outcome. The same
// code path Apply trusts produces the projected content, so a clean preview
// is an honest predictor barring concurrent modification.
func (a *Applier) Preview(ctx context.Context, plan *edit.Plan) (*DryRunReport, error) {
	if plan.IsEmpty() {
		return &DryRunReport{}, nil
	}

	validated, conflicts := a.validate(ctx, plan)

	report := &DryRunReport{Conflicts: conflicts}
	for _, v := range validated {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(v.preImage)),
			B:        difflib.SplitLines(v.postImage),
			FromFile: "a/" + v.file,
			ToFile:   "b/" + v.file,
			Context:  3,
		})
		if err != nil {
			return nil, err
		}
		report.Files = append(report.Files, FilePreview{
			File:       v.file,
			NewContent: v.postImage,
			Diff:       diff,
		})
	}

	return report, nil
}
