// Package persist keeps state containers in YAML files so that selected
// fields survive between runs.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/adminstate/internal/state"
)

const (
	fileExt        = ".yaml"
	tempFilePrefix = "adminstate-tmp-"
	filePerm       = 0o600
	dirPerm        = 0o700
)

// Errors.
var (
	ErrEmptyDir  = errors.New("persist: state directory cannot be empty")
	ErrEmptyName = errors.New("persist: container name cannot be empty")
)

// FileStore creates containers backed by <dir>/<name>.yaml.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrEmptyDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("persist: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the state directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// ContainerOption configures a persisted container.
type ContainerOption func(*Container)

// WithPaths restricts persistence to the given top-level fields. Without it
// every field is persisted.
func WithPaths(paths ...string) ContainerOption {
	return func(c *Container) {
		c.paths = append([]string(nil), paths...)
	}
}

// Container is a state.Container that writes its persisted fields to disk
// after every change.
type Container struct {
	*state.MemoryContainer

	path   string
	paths  []string
	logger *zap.Logger

	saveMu sync.Mutex
}

// Container returns the container for name, seeded with defaults and then
// rehydrated from its file. Only persisted fields are read back.
func (f *FileStore) Container(name string, defaults map[string]any, opts ...ContainerOption) (*Container, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	c := &Container{
		path:   filepath.Join(f.dir, name+fileExt),
		logger: f.logger.With(zap.String("store", name)),
	}
	for _, opt := range opts {
		opt(c)
	}

	seed := make(map[string]any, len(defaults))
	for key, value := range defaults {
		seed[key] = value
	}

	saved, err := c.read()
	if err != nil {
		return nil, err
	}
	for key, value := range c.filter(saved) {
		seed[key] = value
	}

	c.MemoryContainer = state.NewMemoryContainer(name, seed)
	c.MemoryContainer.Subscribe(func(map[string]any) {
		if err := c.Flush(); err != nil {
			c.logger.Error("state not persisted", zap.String("file", c.path), zap.Error(err))
		}
	})

	c.logger.Debug("container rehydrated",
		zap.String("file", c.path),
		zap.Strings("fields", sortedKeys(saved)),
	)
	return c, nil
}

// Path returns the backing file.
func (c *Container) Path() string {
	return c.path
}

// Flush writes the current persisted fields to disk. It always writes the
// latest data, so concurrent flushes converge on the final state.
func (c *Container) Flush() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	var (
		data []byte
		err  error
	)
	c.View(func(current map[string]any) {
		data, err = yaml.Marshal(c.filter(current))
	})
	if err != nil {
		return fmt.Errorf("persist: encoding %s: %w", c.Name(), err)
	}

	return writeFileAtomic(c.path, data, filePerm)
}

// read loads the backing file. A missing file is an empty state.
func (c *Container) read() (map[string]any, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: reading %s: %w", c.path, err)
	}

	saved := map[string]any{}
	if err := yaml.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("persist: decoding %s: %w", c.path, err)
	}
	return saved, nil
}

// filter keeps the persisted fields of data.
func (c *Container) filter(data map[string]any) map[string]any {
	if len(c.paths) == 0 {
		out := make(map[string]any, len(data))
		for key, value := range data {
			out[key] = value
		}
		return out
	}

	out := make(map[string]any, len(c.paths))
	for _, key := range c.paths {
		if value, ok := data[key]; ok {
			out[key] = value
		}
	}
	return out
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("persist: creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("persist: writing temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("persist: syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("persist: closing temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("persist: chmod temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("persist: renaming temp file to %s: %w", filename, err)
	}

	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
