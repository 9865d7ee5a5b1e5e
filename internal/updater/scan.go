package updater

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/paths"
)

// candidate is one workspace file that survived the filters and may need
// ripple edits.
type candidate struct {
	file     string
	language lang.Language
	content  []byte
}

// scanWorkspace walks the repository for files of the given languages,
// reads the ones that pass a cheap textual prefilter for needle, and
// returns them in lexical order. The walk honors the configured ignore
// list and the file size and count caps.
func (u *Updater) scanWorkspace(ctx context.Context, languages map[lang.Language]bool, needle string, exclude map[string]bool) ([]candidate, error) {
	ignore := make(map[string]bool, len(u.cfg.Scan.Ignore))
	for _, name := range u.cfg.Scan.Ignore {
		ignore[name] = true
	}

	var files []string
	err := filepath.WalkDir(u.cfg.RepoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if ignore[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		language, ok := lang.LanguageOfFile(path)
		if !ok || !languages[language] {
			return nil
		}

		rel, err := paths.Canonicalize(path, u.cfg.RepoRoot)
		if err != nil || exclude[rel] {
			return nil
		}

		if info, err := d.Info(); err != nil || info.Size() > int64(u.cfg.Scan.MaxFileSizeBytes) {
			return nil
		}

		files = append(files, rel)
		if len(files) > u.cfg.Scan.MaxFilesScanned {
			return rfxerrors.New(rfxerrors.IoFailure,
				fmt.Sprintf("workspace exceeds the %d-file scan cap", u.cfg.Scan.MaxFilesScanned))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	parallelism := u.cfg.Scan.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	var mu sync.Mutex
	var matched []candidate

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(paths.Join(u.cfg.RepoRoot, file))
			if err != nil {
				return nil // deleted mid-scan, skip
			}
			if !lang.WordOccurs(string(content), needle) {
				return nil
			}

			language, _ := lang.LanguageOfFile(file)
			mu.Lock()
			matched = append(matched, candidate{file: file, language: language, content: content})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].file < matched[j].file })
	return matched, nil
}
