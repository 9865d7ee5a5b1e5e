package edit

import (
	"encoding/json"
	"time"
)

// planDocument is the wire shape of a plan. File order is explicit because
// JSON objects would not preserve it.
type planDocument struct {
	Intent    Intent            `json:"intent"`
	CreatedAt time.Time         `json:"createdAt"`
	Files     []fileEdits       `json:"files"`
	Checksums map[string]string `json:"checksums"`
}

type fileEdits struct {
	File  string     `json:"file"`
	Edits []TextEdit `json:"edits"`
}

// MarshalJSON encodes the plan with its file order preserved.
func (p *Plan) MarshalJSON() ([]byte, error) {
	doc := planDocument{
		Intent:    p.Intent,
		CreatedAt: p.CreatedAt,
		Checksums: p.Checksums,
	}
	for _, file := range p.order {
		doc.Files = append(doc.Files, fileEdits{File: file, Edits: p.edits[file]})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a plan, re-running the disjointness invariant on
// every file. A hand-edited plan file that violates it is rejected here,
// not at apply time.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	rebuilt := NewPlan(doc.Intent)
	rebuilt.CreatedAt = doc.CreatedAt
	for _, fe := range doc.Files {
		if err := rebuilt.AddFileEdits(fe.File, fe.Edits); err != nil {
			return err
		}
	}
	for file, sum := range doc.Checksums {
		rebuilt.SetChecksum(file, sum)
	}

	*p = *rebuilt
	return nil
}
