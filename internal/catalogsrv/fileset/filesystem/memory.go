package filesystem

import (
	"context"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tansive/metacatalog/internal/catalogsrv/security"
)

const MemScheme = "mem"

// memVolume is the shared state behind one mem://<volume> host. Volumes live
// for the life of the process.
type memVolume struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	owner string
	isDir bool
}

var (
	memVolumesMu sync.Mutex
	memVolumes   = map[string]*memVolume{}
)

func memVolumeFor(host string) *memVolume {
	memVolumesMu.Lock()
	defer memVolumesMu.Unlock()
	v, ok := memVolumes[host]
	if !ok {
		v = &memVolume{entries: map[string]memEntry{"/": {isDir: true}}}
		memVolumes[host] = v
	}
	return v
}

// ResetMemVolume drops everything stored on the mem volume host.
func ResetMemVolume(host string) {
	memVolumesMu.Lock()
	defer memVolumesMu.Unlock()
	delete(memVolumes, host)
}

// memFS is an in-process filesystem. Directories it creates are owned by the
// user the handle was opened for.
type memFS struct {
	loc   *url.URL
	vol   *memVolume
	owner string
}

func openMem(_ context.Context, loc *url.URL, id security.Identity, _ map[string]string) (FileSystem, error) {
	owner := id.User
	if owner == "" {
		owner = processUser()
	}
	return &memFS{loc: loc, vol: memVolumeFor(loc.Host), owner: owner}, nil
}

func (m *memFS) path(location string) (string, error) {
	loc, err := parseScheme(location, MemScheme)
	if err != nil {
		return "", err
	}
	if loc.Host != m.loc.Host {
		return "", pathError("open", location, fs.ErrInvalid)
	}
	return loc.Path, nil
}

func (m *memFS) MkdirAll(ctx context.Context, location string) error {
	p, err := m.path(location)
	if err != nil {
		return err
	}
	m.vol.mu.Lock()
	defer m.vol.mu.Unlock()
	var missing []string
	for dir := p; ; dir = path.Dir(dir) {
		e, ok := m.vol.entries[dir]
		if ok {
			if !e.isDir {
				return pathError("mkdir", withPath(m.loc, dir), fs.ErrExist)
			}
			break
		}
		missing = append(missing, dir)
		if dir == "/" {
			break
		}
	}
	for _, dir := range missing {
		m.vol.entries[dir] = memEntry{owner: m.owner, isDir: true}
	}
	return nil
}

func (m *memFS) Exists(ctx context.Context, location string) (bool, error) {
	p, err := m.path(location)
	if err != nil {
		return false, err
	}
	m.vol.mu.RLock()
	defer m.vol.mu.RUnlock()
	_, ok := m.vol.entries[p]
	return ok, nil
}

func (m *memFS) Stat(ctx context.Context, location string) (*FileInfo, error) {
	p, err := m.path(location)
	if err != nil {
		return nil, err
	}
	m.vol.mu.RLock()
	defer m.vol.mu.RUnlock()
	e, ok := m.vol.entries[p]
	if !ok {
		return nil, pathError("stat", location, fs.ErrNotExist)
	}
	return &FileInfo{Path: withPath(m.loc, p), Owner: e.owner, IsDir: e.isDir}, nil
}

func (m *memFS) List(ctx context.Context, location string) ([]FileInfo, error) {
	p, err := m.path(location)
	if err != nil {
		return nil, err
	}
	m.vol.mu.RLock()
	defer m.vol.mu.RUnlock()
	if e, ok := m.vol.entries[p]; !ok || !e.isDir {
		return nil, pathError("readdir", location, fs.ErrNotExist)
	}
	var out []FileInfo
	for name, e := range m.vol.entries {
		if name != p && path.Dir(name) == p {
			out = append(out, FileInfo{Path: withPath(m.loc, name), Owner: e.owner, IsDir: e.isDir})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *memFS) RemoveAll(ctx context.Context, location string) error {
	p, err := m.path(location)
	if err != nil {
		return err
	}
	if p == "/" {
		return pathError("remove", location, fs.ErrPermission)
	}
	m.vol.mu.Lock()
	defer m.vol.mu.Unlock()
	prefix := p + "/"
	for name := range m.vol.entries {
		if name == p || strings.HasPrefix(name, prefix) {
			delete(m.vol.entries, name)
		}
	}
	return nil
}

func (m *memFS) Close() error {
	return nil
}

func init() {
	Register(MemScheme, openMem)
}
