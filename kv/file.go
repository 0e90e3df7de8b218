package kv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*File)(nil)

// File is a Store persisted as a JSON object on disk. It is the
// longer-lived backend: values written here survive process restarts.
type File struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return errors.Wrap(err, "[File.Set] load")
	}
	f.values[key] = value
	return f.flush()
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return errors.Wrap(err, "[File.Remove] load")
	}
	delete(f.values, key)
	return f.flush()
}

func (f *File) load() error {
	if f.loaded {
		return nil
	}
	f.values = make(map[string]string)
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		f.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		// A corrupt state file is not worth failing the session over;
		// start from empty and overwrite on the next write.
		f.values = make(map[string]string)
	}
	f.loaded = true
	return nil
}

// flush writes through a temp file in the same directory and renames it
// over the state file, so a crash mid-write cannot leave a corrupt file
// behind.
func (f *File) flush() error {
	data, err := json.Marshal(f.values)
	if err != nil {
		return errors.Wrap(err, "[File.flush] marshal")
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrap(err, "[File.flush] mkdir")
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[File.flush] write")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "[File.flush] replace")
	}
	return nil
}
