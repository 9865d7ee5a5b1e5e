package edit

// ConflictReason classifies why a file blocked an apply.
type ConflictReason string

const (
	// ConflictChecksum means on-disk content no longer matches the plan
	ConflictChecksum ConflictReason = "checksum-mismatch"
	// ConflictParse means post-edit content failed to parse
	ConflictParse ConflictReason = "parse-failure"
	// ConflictPermission means the file could not be read or written
	ConflictPermission ConflictReason = "permission-denied"
)

// Conflict names a file that blocked an apply and why.
type Conflict struct {
	File   string         `json:"file"`
	Reason ConflictReason `json:"reason"`
	Detail string         `json:"detail,omitempty"`
}

// ApplyResult reports one apply attempt. FilesModified is populated from the
// same list the commit loop iterates, never recomputed, so the count always
// matches what landed on disk. Values are never mutated after creation.
type ApplyResult struct {
	Applied       bool       `json:"applied"`
	FilesModified []string   `json:"filesModified"`
	Conflicts     []Conflict `json:"conflicts,omitempty"`
}
