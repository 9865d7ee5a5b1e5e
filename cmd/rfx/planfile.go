package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"rfx/internal/edit"
)

// planEnvelope is the on-disk shape written by `rfx plan`: the plan itself
// plus the provenance fields preview and apply don't need but humans do.
type planEnvelope struct {
	Plan          *edit.Plan `json:"plan"`
	Source        string     `json:"source"`
	AffectedFiles []string   `json:"affectedFiles"`
}

// loadPlan reads a plan file written by `rfx plan`. Decoding re-runs the
// plan invariants, so a hand-edited file with overlapping edits fails here.
func loadPlan(repoRoot, path string) (*edit.Plan, error) {
	if path == "" {
		path = filepath.Join(repoRoot, ".rfx", "plan.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read plan file %s: %w", path, err)
	}

	var env planEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid plan file %s: %w", path, err)
	}
	if env.Plan == nil {
		return nil, fmt.Errorf("plan file %s has no plan", path)
	}
	return env.Plan, nil
}
