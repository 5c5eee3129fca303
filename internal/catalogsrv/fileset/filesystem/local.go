package filesystem

import (
	"context"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
)

const FileScheme = "file"

// localFS works on the local filesystem as the service process. It cannot
// switch users, so impersonation is only accepted for the process user.
type localFS struct {
	perm os.FileMode
}

func openLocal(ctx context.Context, _ *url.URL, id security.Identity, _ map[string]string) (FileSystem, error) {
	if id.Impersonated() {
		u, err := user.Current()
		if err != nil || u.Username != id.User {
			log.Ctx(ctx).Warn().Str("user", id.User).Msg("local filesystem cannot act as another user")
			return nil, caterrors.ErrUnsupportedOperation.Msgf("local filesystem cannot create storage as user %s", id.User)
		}
	}
	return &localFS{perm: 0o755}, nil
}

func localPath(location string) (string, error) {
	loc, err := parseScheme(location, FileScheme)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(loc.Path), nil
}

func (l *localFS) MkdirAll(ctx context.Context, location string) error {
	p, err := localPath(location)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, l.perm)
}

func (l *localFS) Exists(ctx context.Context, location string) (bool, error) {
	p, err := localPath(location)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *localFS) Stat(ctx context.Context, location string) (*FileInfo, error) {
	p, err := localPath(location)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	return &FileInfo{Path: fileURI(p), Owner: fileOwner(fi), IsDir: fi.IsDir()}, nil
}

func (l *localFS) List(ctx context.Context, location string) ([]FileInfo, error) {
	p, err := localPath(location)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, FileInfo{Path: fileURI(filepath.Join(p, e.Name())), Owner: fileOwner(fi), IsDir: fi.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (l *localFS) RemoveAll(ctx context.Context, location string) error {
	p, err := localPath(location)
	if err != nil {
		return err
	}
	if filepath.Dir(p) == p {
		return pathError("remove", location, os.ErrPermission)
	}
	return os.RemoveAll(p)
}

func (l *localFS) Close() error {
	return nil
}

func fileURI(p string) string {
	return (&url.URL{Scheme: FileScheme, Path: filepath.ToSlash(p)}).String()
}

var (
	processUserOnce sync.Once
	processUserName string
)

// processUser is the name of the user running the service.
func processUser() string {
	processUserOnce.Do(func() {
		if u, err := user.Current(); err == nil {
			processUserName = u.Username
		}
	})
	return processUserName
}

func init() {
	Register(FileScheme, openLocal)
}
