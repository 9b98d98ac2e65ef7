// Package snapshot persists the facts of a source tree so a later run can
// tell which modules changed and rebuild the graph as it was.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/skelly-dev/ripple/internal/facts"
	"github.com/skelly-dev/ripple/internal/fileutil"
)

const (
	DefaultPath             = ".ripple/snapshot.json.zst"
	CurrentVersion          = "2"
	CurrentExtractorVersion = "tree-sitter-js-v1"
)

// ErrNotFound is returned by Load when no snapshot exists at the path.
var ErrNotFound = errors.New("snapshot: not found")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ModuleState is the stored view of one module.
type ModuleState struct {
	Hash  string            `json:"hash"`
	Facts facts.ModuleFacts `json:"facts"`
}

// Snapshot is the stored view of a whole tree.
type Snapshot struct {
	Version          string                 `json:"version"`
	ExtractorVersion string                 `json:"extractor_version,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	Modules          map[string]ModuleState `json:"modules"`
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		Version:          CurrentVersion,
		ExtractorVersion: CurrentExtractorVersion,
		Modules:          make(map[string]ModuleState),
	}
}

// FromFacts captures records together with their content hashes.
func FromFacts(records []facts.ModuleFacts, hashes map[string]string) *Snapshot {
	s := New()
	for _, record := range records {
		s.Modules[record.ModuleID] = ModuleState{Hash: hashes[record.ModuleID], Facts: record}
	}
	return s
}

// Load reads a snapshot written by Save. Uncompressed JSON from older versions
// is accepted and migrated.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		if data, err = decoder.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	migrate(&s)
	return &s, nil
}

// Save writes the snapshot as zstd-compressed JSON.
func (s *Snapshot) Save(path string) error {
	if s.Version == "" {
		s.Version = CurrentVersion
	}
	if s.ExtractorVersion == "" {
		s.ExtractorVersion = CurrentExtractorVersion
	}
	if s.Modules == nil {
		s.Modules = make(map[string]ModuleState)
	}
	s.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer encoder.Close()
	return fileutil.WriteFileAtomic(path, encoder.EncodeAll(data, nil), 0o644)
}

// Records returns the stored facts sorted by module ID.
func (s *Snapshot) Records() []facts.ModuleFacts {
	out := make([]facts.ModuleFacts, 0, len(s.Modules))
	for _, id := range fileutil.MapKeysSorted(s.Modules) {
		out = append(out, s.Modules[id].Facts)
	}
	return out
}

// Hashes returns module ID to content hash.
func (s *Snapshot) Hashes() map[string]string {
	out := make(map[string]string, len(s.Modules))
	for id, m := range s.Modules {
		out[id] = m.Hash
	}
	return out
}

// HasChanged reports whether id is new or its hash differs from the stored one.
func (s *Snapshot) HasChanged(id, currentHash string) bool {
	stored, ok := s.Modules[id]
	return !ok || stored.Hash != currentHash
}

// ChangedModules returns new or modified modules, sorted.
func (s *Snapshot) ChangedModules(currentHashes map[string]string) []string {
	changed := make([]string, 0)
	for id, hash := range currentHashes {
		if s.HasChanged(id, hash) {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

// DeletedModules returns stored modules missing from current, sorted.
func (s *Snapshot) DeletedModules(current map[string]bool) []string {
	deleted := make([]string, 0)
	for id := range s.Modules {
		if !current[id] {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// migrate upgrades older snapshots in place. Version 1 stored uncompressed
// JSON with the same layout.
func migrate(s *Snapshot) {
	if s.Modules == nil {
		s.Modules = make(map[string]ModuleState)
	}
	if s.ExtractorVersion == "" {
		s.ExtractorVersion = CurrentExtractorVersion
	}
	switch s.Version {
	case "", "1":
		s.Version = CurrentVersion
	}
	for id, m := range s.Modules {
		if m.Facts.ModuleID == "" {
			m.Facts.ModuleID = id
			s.Modules[id] = m
		}
	}
}
