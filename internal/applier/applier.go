// Package applier validates and commits edit plans transactionally: all
// files change or none do. Staleness is detected by content checksum, never
// by locks; commit is temp-sibling plus atomic rename in lexical file order
// with best-effort rollback from in-memory snapshots.
package applier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rfx/internal/config"
	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/logging"
	"rfx/internal/paths"
)

// Applier applies edit plans to the working tree.
type Applier struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *lang.Registry

	// commitFile writes final content for one absolute path. Tests inject
	// failures here; the default is atomic temp-sibling + rename.
	commitFile func(absPath string, data []byte) error
}

// New creates an applier.
func New(cfg *config.Config, logger *logging.Logger, registry *lang.Registry) *Applier {
	a := &Applier{
		cfg:      cfg,
		logger:   logger.WithComponent("applier"),
		registry: registry,
	}
	a.commitFile = a.atomicWrite
	return a
}

// validation is the outcome of phase one for a single file.
type validation struct {
	file      string
	preImage  []byte
	existed   bool
	postImage string
}

// validate runs phase one over every file in lexical order: checksum
// comparison, edit application in memory, and optional post-edit re-parse.
// No byte is written.
func (a *Applier) validate(ctx context.Context, plan *edit.Plan) ([]validation, []edit.Conflict) {
	var validated []validation
	var conflicts []edit.Conflict

	for _, file := range plan.FilesSorted() {
		abs := paths.Join(a.cfg.RepoRoot, file)

		content, err := os.ReadFile(abs)
		existed := true
		if err != nil {
			if !os.IsNotExist(err) {
				conflicts = append(conflicts, edit.Conflict{
					File:   file,
					Reason: edit.ConflictPermission,
					Detail: err.Error(),
				})
				continue
			}
			// A file the plan creates: its checksum must be of empty content
			existed = false
			content = nil
		}

		want, hasChecksum := plan.Checksums[file]
		if hasChecksum && edit.Checksum(string(content)) != want {
			conflicts = append(conflicts, edit.Conflict{
				File:   file,
				Reason: edit.ConflictChecksum,
				Detail: "file changed since the plan was computed",
			})
			continue
		}

		post, err := edit.ApplyEdits(string(content), plan.Edits(file))
		if err != nil {
			conflicts = append(conflicts, edit.Conflict{
				File:   file,
				Reason: edit.ConflictChecksum,
				Detail: fmt.Sprintf("edits no longer fit the file: %v", err),
			})
			continue
		}

		if a.cfg.Applier.ValidateParse {
			if reason := a.checkParse(ctx, file, post); reason != "" {
				conflicts = append(conflicts, edit.Conflict{
					File:   file,
					Reason: edit.ConflictParse,
					Detail: reason,
				})
				continue
			}
		}

		validated = append(validated, validation{
			file:      file,
			preImage:  content,
			existed:   existed,
			postImage: post,
		})
	}

	return validated, conflicts
}

// checkParse re-parses post-edit content. An empty string means fine; builds
// without a parser skip the check rather than failing it.
func (a *Applier) checkParse(ctx context.Context, file, content string) string {
	language, ok := lang.LanguageOfFile(file)
	if !ok {
		return ""
	}
	if !a.registry.Supports(language, lang.CapParse) {
		return ""
	}
	provider, ok := a.registry.ForLanguage(language)
	if !ok {
		return ""
	}

	ast, err := provider.Parse(ctx, file, []byte(content))
	if err != nil {
		if lang.IsUnsupported(err) {
			return ""
		}
		return err.Error()
	}
	if ast.HasErrors() {
		return "post-edit content does not parse"
	}
	return ""
}

// Apply commits the plan. Either every file is rewritten or, after a
// mid-commit failure, every already-written file is rolled back from its
// snapshot. Cancellation is honored up to the moment the commit phase
// starts; after that the transaction runs to its end.
func (a *Applier) Apply(ctx context.Context, plan *edit.Plan) (*edit.ApplyResult, error) {
	if plan.IsEmpty() {
		return &edit.ApplyResult{Applied: true}, nil
	}

	validated, conflicts := a.validate(ctx, plan)
	if len(conflicts) > 0 {
		a.logger.Warn("apply rejected in validation", map[string]interface{}{
			"intent":    plan.Intent.Describe(),
			"conflicts": len(conflicts),
		})
		return &edit.ApplyResult{Applied: false, Conflicts: conflicts},
			staleOrCorrupt(conflicts)
	}

	if err := ctx.Err(); err != nil {
		return &edit.ApplyResult{Applied: false},
			rfxerrors.Wrap(rfxerrors.IoFailure, "apply cancelled before commit", err)
	}

	// Commit phase. Snapshots first, then writes in the same lexical order
	// validation used.
	snapshots := newSnapshotStore()
	for _, v := range validated {
		snapshots.Add(v.file, v.preImage, v.existed)
	}

	var committed []string
	for _, v := range validated {
		abs := paths.Join(a.cfg.RepoRoot, v.file)
		if err := a.commitFile(abs, []byte(v.postImage)); err != nil {
			rolledBack := a.rollback(snapshots, committed)
			return &edit.ApplyResult{
					Applied: false,
					Conflicts: []edit.Conflict{{
						File:   v.file,
						Reason: edit.ConflictPermission,
						Detail: err.Error(),
					}},
				}, rfxerrors.Wrap(rfxerrors.PartialFailure,
					fmt.Sprintf("commit failed at %s; rolled back %d file(s)", v.file, len(rolledBack)), err).
					WithFile(v.file).
					WithDetails(map[string]interface{}{"rolledBack": rolledBack})
		}
		committed = append(committed, v.file)
	}

	a.logger.Info("plan applied", map[string]interface{}{
		"intent": plan.Intent.Describe(),
		"files":  len(committed),
	})

	// FilesModified is the commit list itself, not a recomputation
	return &edit.ApplyResult{Applied: true, FilesModified: committed}, nil
}

// rollback restores every committed file from its snapshot. Best effort: a
// file that cannot be restored is skipped and excluded from the returned
// list.
func (a *Applier) rollback(snapshots *snapshotStore, committed []string) []string {
	var restored []string
	for _, file := range committed {
		abs := paths.Join(a.cfg.RepoRoot, file)

		content, existed, ok := snapshots.Get(file)
		if !ok {
			a.logger.Error("rollback snapshot missing", map[string]interface{}{"file": file})
			continue
		}

		var err error
		if existed {
			err = a.atomicWrite(abs, content)
		} else {
			err = os.Remove(abs)
		}
		if err != nil {
			a.logger.Error("rollback failed for file", map[string]interface{}{
				"file":  file,
				"error": err.Error(),
			})
			continue
		}
		restored = append(restored, file)
	}
	return restored
}

// atomicWrite writes data to a temp sibling and renames it into place, so a
// crash never leaves a half-written file.
func (a *Applier) atomicWrite(absPath string, data []byte) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".rfx-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// staleOrCorrupt picks the coded error for a validation rejection. A checksum
// mismatch means the plan no longer matches the tree and wins over everything
// else; a post-edit parse failure means the plan would break a file; anything
// left is an unreadable file, which is an I/O problem, not a stale plan.
func staleOrCorrupt(conflicts []edit.Conflict) error {
	code := rfxerrors.IoFailure
	for _, c := range conflicts {
		if c.Reason == edit.ConflictChecksum {
			code = rfxerrors.StalePlan
			break
		}
		if c.Reason == edit.ConflictParse {
			code = rfxerrors.WouldCorruptFile
		}
	}
	return rfxerrors.New(code, fmt.Sprintf("%d file(s) failed validation; nothing was written", len(conflicts)))
}
