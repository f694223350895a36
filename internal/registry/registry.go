// Package registry mints hierarchical artifact identifiers and persists
// their lineage to a JSON index file.
package registry

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

const baseIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry assigns session/document/audio identifiers where every id
// encodes its lineage as a prefix, and flushes the full entry map to disk
// on every mutation so a restart reconstructs identical state.
type Registry struct {
	mu      sync.Mutex
	path    string
	entries map[string]*domain.ArtifactEntry
	issued  map[string]bool
	rand    *rand.Rand
}

// Load opens the registry backed by the JSON index at path, creating an
// empty one when the file does not exist yet.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		entries: make(map[string]*domain.ArtifactEntry),
		issued:  make(map[string]bool),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact index: %w", err)
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("failed to parse artifact index %s: %w", path, err)
	}
	for id := range r.entries {
		r.issued[baseOf(id)] = true
	}
	return r, nil
}

// GenerateBaseID mints a 3-character uppercase alphanumeric id distinct
// from every id issued by this registry instance, registered or not.
func (r *Registry) GenerateBaseID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mintBaseID()
}

func (r *Registry) mintBaseID() string {
	for {
		b := make([]byte, 3)
		for i := range b {
			b[i] = baseIDAlphabet[r.rand.Intn(len(baseIDAlphabet))]
		}
		id := string(b)
		if !r.issued[id] {
			r.issued[id] = true
			return id
		}
	}
}

// RegisterSession records a new root session entry and returns its id.
func (r *Registry) RegisterSession(externalID, query string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.mintBaseID()
	r.entries[id] = &domain.ArtifactEntry{
		ID:         id,
		Type:       domain.ArtifactTypeSession,
		ExternalID: externalID,
		Query:      query,
		CreatedAt:  time.Now(),
	}
	if err := r.save(); err != nil {
		delete(r.entries, id)
		return "", err
	}
	return id, nil
}

// RegisterDocument records a document under a session. The id is the
// session id plus a zero-padded sequence number starting at 01, and the
// current title is seeded with the id so renames in the external system
// remain traceable.
func (r *Registry) RegisterDocument(sessionID, externalID, title string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.entries[sessionID]
	if !ok || parent.Type != domain.ArtifactTypeSession {
		return "", fmt.Errorf("session %s not found", sessionID)
	}

	seq := 1
	for _, entry := range r.entries {
		if entry.Type == domain.ArtifactTypeDocument && entry.ParentID == sessionID {
			seq++
		}
	}
	id := fmt.Sprintf("%s-%02d", sessionID, seq)

	r.entries[id] = &domain.ArtifactEntry{
		ID:           id,
		Type:         domain.ArtifactTypeDocument,
		ParentID:     sessionID,
		ExternalID:   externalID,
		Title:        title,
		CurrentTitle: id + " " + title,
		CreatedAt:    time.Now(),
	}
	if err := r.save(); err != nil {
		delete(r.entries, id)
		return "", err
	}
	return id, nil
}

// RegisterAudio records an audio artifact under a document. The id is the
// document id plus the next unused letter suffix, A through Z.
func (r *Registry) RegisterAudio(docID, providerRef, title string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.entries[docID]
	if !ok || parent.Type != domain.ArtifactTypeDocument {
		return "", fmt.Errorf("document %s not found", docID)
	}

	used := make(map[byte]bool)
	for _, entry := range r.entries {
		if entry.Type == domain.ArtifactTypeAudio && entry.ParentID == docID {
			used[entry.ID[len(entry.ID)-1]] = true
		}
	}
	var letter byte
	for c := byte('A'); c <= 'Z'; c++ {
		if !used[c] {
			letter = c
			break
		}
	}
	if letter == 0 {
		return "", fmt.Errorf("document %s has no audio letters left", docID)
	}
	id := docID + "-" + string(letter)

	r.entries[id] = &domain.ArtifactEntry{
		ID:         id,
		Type:       domain.ArtifactTypeAudio,
		ParentID:   docID,
		ExternalID: providerRef,
		Title:      title,
		CreatedAt:  time.Now(),
	}
	if err := r.save(); err != nil {
		delete(r.entries, id)
		return "", err
	}
	return id, nil
}

// Get returns the entry for id, nil when unknown.
func (r *Registry) Get(id string) *domain.ArtifactEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil
	}
	copied := *entry
	return &copied
}

// GetLineage walks parent pointers from id to the root, returning
// [self, parent, grandparent, ...]. An unknown id yields an empty list.
func (r *Registry) GetLineage(id string) []domain.ArtifactEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lineage []domain.ArtifactEntry
	for id != "" {
		entry, ok := r.entries[id]
		if !ok {
			break
		}
		lineage = append(lineage, *entry)
		id = entry.ParentID
	}
	return lineage
}

// ListByType returns all entries of the given type, ordered by id.
func (r *Registry) ListByType(t domain.ArtifactType) []domain.ArtifactEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ArtifactEntry
	for _, entry := range r.entries {
		if entry.Type == t {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateCurrentTitle records a rename observed in the external system.
func (r *Registry) UpdateCurrentTitle(id, currentTitle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("artifact %s not found", id)
	}
	previous := entry.CurrentTitle
	entry.CurrentTitle = currentTitle
	if err := r.save(); err != nil {
		entry.CurrentTitle = previous
		return err
	}
	return nil
}

// save writes the full entry map through a temp file and rename so the
// index is never observed half-written.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact index: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace artifact index: %w", err)
	}
	return nil
}

func baseOf(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
