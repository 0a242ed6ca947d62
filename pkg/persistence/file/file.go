// Package file provides file-based persistence: one JSON document per entity
// under a root directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
//
// A single mutex serializes writers of this process; it does not protect
// against other processes sharing the same root.
type Persistence struct {
	root string
	mu   sync.Mutex

	directoryRepo *DirectoryRepository
	processRepo   *ProcessRepository
	formRepo      *FormRepository
	taskRepo      *TaskRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.directoryRepo = &DirectoryRepository{p: p, path: filepath.Join(cleanRoot, "directory.json")}
	p.processRepo = &ProcessRepository{p: p, docs: documents[models.Process]{dir: filepath.Join(cleanRoot, "processes")}}
	p.formRepo = &FormRepository{p: p, docs: documents[models.Form]{dir: filepath.Join(cleanRoot, "forms")}}
	p.taskRepo = &TaskRepository{p: p, docs: documents[models.Task]{dir: filepath.Join(cleanRoot, "tasks")}}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) DirectoryRepository() persistence.DirectoryRepository {
	return fp.directoryRepo
}

func (fp *Persistence) ProcessRepository() persistence.ProcessRepository {
	return fp.processRepo
}

func (fp *Persistence) FormRepository() persistence.FormRepository {
	return fp.formRepo
}

func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.taskRepo
}

// documents stores values of T as <dir>/<id>.json.
type documents[T any] struct {
	dir string
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func (d documents[T]) path(id string) string {
	return filepath.Join(d.dir, id+".json")
}

// read returns nil without error when the document does not exist.
func (d documents[T]) read(id string) (*T, error) {
	if !validID(id) {
		return nil, nil
	}

	return readJSON[T](d.path(id))
}

func (d documents[T]) write(id string, v *T) error {
	if !validID(id) {
		return fmt.Errorf("invalid document id %q", id)
	}

	if err := os.MkdirAll(d.dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.dir, err)
	}

	return writeJSON(d.path(id), v)
}

// remove reports false when the document did not exist.
func (d documents[T]) remove(id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	err := os.Remove(d.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return true, nil
}

func (d documents[T]) all() ([]*T, error) {
	matches, err := fs.Glob(os.DirFS(d.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.dir, err)
	}

	items := make([]*T, 0, len(matches))

	for _, name := range matches {
		item, err := d.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		if item != nil {
			items = append(items, item)
		}
	}

	return items, nil
}

func readJSON[T any](path string) (*T, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return &v, nil
}

// writeJSON replaces path atomically through a temporary file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
