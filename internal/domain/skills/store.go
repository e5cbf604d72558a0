package skills

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// keyedMutex hands out one RWMutex per key, freed once no goroutine holds or
// waits on it
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.RWMutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires key exclusively and returns its unlock function
func (k *keyedMutex) Lock(key string) func() {
	m := k.acquire(key)
	m.Lock()
	return func() {
		m.Unlock()
		k.release(key, m)
	}
}

// RLock acquires key shared with other readers
func (k *keyedMutex) RLock(key string) func() {
	m := k.acquire(key)
	m.RLock()
	return func() {
		m.RUnlock()
		k.release(key, m)
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *keyedMutex) release(key string, m *refMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}

// renameFile is replaced in tests to inject failures
var renameFile = os.Rename

// stageFile writes data to a temporary sibling of path and returns its name.
// The caller renames it into place or removes it.
func stageFile(path string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, perm)
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// writeResources writes every file of set into dir, creating dir
func writeResources(dir string, set Resources, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range set {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), perm); err != nil {
			return err
		}
		// WriteFile keeps the mode of existing files and applies umask
		if err := os.Chmod(filepath.Join(dir, name), perm); err != nil {
			return err
		}
	}
	return nil
}

// listFiles returns the sorted regular file names in dir. A missing dir is
// empty.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
