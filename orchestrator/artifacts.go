// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// ErrArtifactNotFound is returned by [MemoryArtifactStore] for an unknown artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore keeps files returned by remote agents. Dispatch replaces every file part
// with a reference to the name it was saved under.
type ArtifactStore interface {
	Save(ctx context.Context, name string, file a2a.FileContent) error
}

// MemoryArtifactStore is an [ArtifactStore] keeping files in memory.
type MemoryArtifactStore struct {
	mu    sync.RWMutex
	files map[string]a2a.FileContent
}

var _ ArtifactStore = (*MemoryArtifactStore)(nil)

// NewMemoryArtifactStore creates an empty [MemoryArtifactStore].
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{files: make(map[string]a2a.FileContent)}
}

// Save implements [ArtifactStore]. A file saved under an existing name replaces it.
func (s *MemoryArtifactStore) Save(ctx context.Context, name string, file a2a.FileContent) error {
	if file.Bytes != "" {
		if _, err := file.Decode(); err != nil {
			return fmt.Errorf("invalid content of file %q: %w", name, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = file
	return nil
}

// Load returns the file saved under name.
func (s *MemoryArtifactStore) Load(ctx context.Context, name string) (a2a.FileContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[name]
	if !ok {
		return a2a.FileContent{}, ErrArtifactNotFound
	}
	return file, nil
}

// Names returns a snapshot of the saved file names.
func (s *MemoryArtifactStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range maps.Keys(s.files) {
		names = append(names, name)
	}
	return names
}

// DirArtifactStore is an [ArtifactStore] writing inline file content to a directory.
type DirArtifactStore struct {
	dir string
}

var _ ArtifactStore = (*DirArtifactStore)(nil)

// NewDirArtifactStore creates a [DirArtifactStore]. The directory is created on first Save.
func NewDirArtifactStore(dir string) *DirArtifactStore {
	return &DirArtifactStore{dir: dir}
}

// Save implements [ArtifactStore]. Only the base name is used, so a remote agent can not
// write outside the directory. Files available only by URI are rejected.
func (s *DirArtifactStore) Save(ctx context.Context, name string, file a2a.FileContent) error {
	data, err := file.Decode()
	if err != nil {
		return err
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("%w: invalid artifact name %q", ErrMalformedRequest, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, base), data, 0o644)
}
