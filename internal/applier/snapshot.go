package applier

import (
	"github.com/klauspost/compress/s2"
)

// snapshotStore holds pre-image file contents for the duration of one apply,
// compressed in memory. It exists only to make rollback possible; nothing
// is ever persisted.
type snapshotStore struct {
	entries map[string]snapshotEntry
}

type snapshotEntry struct {
	compressed []byte
	existed    bool
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{entries: make(map[string]snapshotEntry)}
}

// Add records the pre-image of file. existed=false marks a file the plan
// creates, so rollback removes it instead of restoring content.
func (s *snapshotStore) Add(file string, content []byte, existed bool) {
	s.entries[file] = snapshotEntry{
		compressed: s2.Encode(nil, content),
		existed:    existed,
	}
}

// Get returns the pre-image content and whether the file existed before the
// apply started.
func (s *snapshotStore) Get(file string) (content []byte, existed bool, ok bool) {
	entry, found := s.entries[file]
	if !found {
		return nil, false, false
	}
	decoded, err := s2.Decode(nil, entry.compressed)
	if err != nil {
		// A corrupt in-memory snapshot means the rollback source is gone
		return nil, entry.existed, false
	}
	return decoded, entry.existed, true
}
