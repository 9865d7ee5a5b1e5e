// Package updater expands an edit plan with the ripple effects of an
// identity-changing refactoring: other files that import or reference the
// symbol get their import statements and uses rewritten, and the expanded
// plan stays one atomic unit.
package updater

import (
	"context"
	"path"
	"strings"

	"rfx/internal/config"
	"rfx/internal/edit"
	"rfx/internal/lang"
	"rfx/internal/logging"
)

// AffectedFileSet is the finite set of files a refactoring ripples into,
// beyond the files the plan already edits.
type AffectedFileSet struct {
	files []string
}

// Files returns the affected files in lexical order.
func (s *AffectedFileSet) Files() []string {
	return append([]string{}, s.files...)
}

// Len returns the number of affected files.
func (s *AffectedFileSet) Len() int { return len(s.files) }

// Updater computes reference and import ripple edits.
type Updater struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *lang.Registry
}

// New creates an updater over the provider registry.
func New(cfg *config.Config, logger *logging.Logger, registry *lang.Registry) *Updater {
	return &Updater{
		cfg:      cfg,
		logger:   logger.WithComponent("updater"),
		registry: registry,
	}
}

// Expand returns plan widened with ripple edits for its intent. Intents
// that cannot change how other files refer to the symbol pass through
// untouched. The returned plan is new; the input is not mutated.
func (u *Updater) Expand(ctx context.Context, plan *edit.Plan) (*edit.Plan, *AffectedFileSet, error) {
	intent := plan.Intent
	if !intent.ChangesImportableIdentity() {
		return plan, &AffectedFileSet{}, nil
	}

	exclude := make(map[string]bool)
	for _, file := range plan.Files() {
		exclude[file] = true
	}

	language, ok := lang.LanguageOfFile(intent.File)
	if !ok {
		return plan, &AffectedFileSet{}, nil
	}

	candidates, err := u.scanWorkspace(ctx, rippleLanguages(language), intent.Symbol, exclude)
	if err != nil {
		return nil, nil, err
	}

	ripple := edit.NewPlan(intent)
	var affected []string

	for _, cand := range candidates {
		edits, err := u.rippleEdits(ctx, intent, cand)
		if err != nil {
			return nil, nil, err
		}
		if len(edits) == 0 {
			continue
		}
		if err := ripple.AddFileEdits(cand.file, edits); err != nil {
			return nil, nil, err
		}
		ripple.SetChecksum(cand.file, edit.Checksum(string(cand.content)))
		affected = append(affected, cand.file)
	}

	if len(affected) == 0 {
		return plan, &AffectedFileSet{}, nil
	}

	expanded, err := plan.Merge(ripple)
	if err != nil {
		return nil, nil, err
	}

	u.logger.Debug("expanded plan with ripple edits", map[string]interface{}{
		"intent":   intent.Describe(),
		"affected": affected,
	})

	return expanded, &AffectedFileSet{files: affected}, nil
}

// rippleLanguages returns the languages whose files can reference a symbol
// defined in language. Imports do not cross language boundaries here.
func rippleLanguages(language lang.Language) map[lang.Language]bool {
	switch language {
	case lang.LangTypeScript, lang.LangTSX, lang.LangJavaScript:
		return map[lang.Language]bool{
			lang.LangTypeScript: true, lang.LangTSX: true, lang.LangJavaScript: true,
		}
	default:
		return map[lang.Language]bool{language: true}
	}
}

// rippleEdits computes the edits one affected file needs.
func (u *Updater) rippleEdits(ctx context.Context, intent edit.Intent, cand candidate) ([]edit.TextEdit, error) {
	provider, ok := u.registry.ForLanguage(cand.language)
	if !ok {
		return nil, nil
	}

	switch intent.Kind {
	case edit.IntentRename:
		// Full reference rewrite when the build can parse; the import
		// clause alone otherwise.
		if u.registry.Supports(cand.language, lang.CapRename) {
			edits, err := provider.Rename(ctx, cand.file, cand.content, intent.Symbol, nil, intent.NewName)
			if err == nil {
				return edits, nil
			}
			if !lang.IsUnsupported(err) {
				// The prefilter can match a word the parser does not
				// see as an identifier; that file just has no edits.
				return nil, nil
			}
		}
		return provider.RewriteImports(ctx, cand.file, cand.content,
			lang.ImportTarget{Name: intent.Symbol},
			lang.ImportTarget{Name: intent.NewName})

	case edit.IntentMove:
		oldPath, err := lang.ModulePathOf(cand.language, cand.file, intent.File)
		if err != nil {
			return nil, nil // no path convention for this language
		}
		newPath, err := lang.ModulePathOf(cand.language, cand.file, intent.Destination)
		if err != nil {
			return nil, nil
		}
		return provider.RewriteImports(ctx, cand.file, cand.content,
			lang.ImportTarget{Path: oldPath, Name: intent.Symbol},
			lang.ImportTarget{Path: newPath, Name: intent.Symbol})

	case edit.IntentDelete:
		oldPath, err := lang.ModulePathOf(cand.language, cand.file, intent.File)
		if err != nil {
			oldPath = importBase(intent.File)
		}
		return provider.RewriteImports(ctx, cand.file, cand.content,
			lang.ImportTarget{Path: oldPath, Name: intent.Symbol},
			lang.ImportTarget{Path: oldPath})

	default:
		return nil, nil
	}
}

// importBase is the extensionless basename, the last-resort module name for
// languages without a derivable path convention.
func importBase(file string) string {
	base := path.Base(file)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
