// Package filesystem gives the fileset catalog a uniform view of the storage
// systems a fileset location can point at. Implementations are selected by the
// scheme of the location URI and opened per operation for one identity.
package filesystem

import (
	"context"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

var ErrUnsupportedScheme = errors.New("unsupported location scheme")

type FileInfo struct {
	// Path is the location of the entry as an absolute URI.
	Path  string
	Owner string
	IsDir bool
}

// FileSystem operates on absolute location URIs of a single scheme. A handle
// is bound to the identity it was opened for and must not be shared between
// operations.
type FileSystem interface {
	MkdirAll(ctx context.Context, location string) error
	Exists(ctx context.Context, location string) (bool, error)
	Stat(ctx context.Context, location string) (*FileInfo, error)
	// List returns the direct children of a directory location.
	List(ctx context.Context, location string) ([]FileInfo, error)
	// RemoveAll removes location and everything below it. A missing location
	// is not an error.
	RemoveAll(ctx context.Context, location string) error
	Close() error
}

// OpenFunc opens a handle for the scheme of loc acting as id. props are the
// catalog properties.
type OpenFunc func(ctx context.Context, loc *url.URL, id security.Identity, props map[string]string) (FileSystem, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register makes open available for scheme. It panics when the scheme is
// registered twice.
func Register(scheme string, open OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	scheme = strings.ToLower(scheme)
	if _, dup := registry[scheme]; dup {
		panic("filesystem: scheme registered twice: " + scheme)
	}
	registry[scheme] = open
}

// Schemes lists the registered schemes.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open returns a handle for the filesystem holding location.
func Open(ctx context.Context, location string, id security.Identity, props map[string]string) (FileSystem, apperrors.Error) {
	loc, appErr := ParseLocation(location)
	if appErr != nil {
		return nil, appErr
	}
	registryMu.RLock()
	open, ok := registry[loc.Scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, caterrors.ErrInvalidArgument.MsgErr("location "+location, errors.Wrap(ErrUnsupportedScheme, loc.Scheme))
	}
	fs, err := open(ctx, loc, id, props)
	if err != nil {
		return nil, Translate(err, "open "+loc.Scheme+" filesystem")
	}
	return fs, nil
}

// ParseLocation validates that location is an absolute URI. Plain absolute
// paths are taken as file URIs.
func ParseLocation(location string) (*url.URL, apperrors.Error) {
	if location == "" {
		return nil, caterrors.ErrInvalidArgument.Msg("storage location is empty")
	}
	if strings.HasPrefix(location, "/") {
		location = "file://" + location
	}
	loc, err := url.Parse(location)
	if err != nil {
		return nil, caterrors.ErrInvalidArgument.MsgErr("invalid storage location "+location, err)
	}
	if loc.Scheme == "" || loc.Opaque != "" {
		return nil, caterrors.ErrInvalidArgument.Msgf("storage location %q is not an absolute URI", location)
	}
	loc.Scheme = strings.ToLower(loc.Scheme)
	loc.Path = cleanPath(loc.Path)
	return loc, nil
}

// Join appends name to the location base.
func Join(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Trim(name, "/")
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

// withPath returns loc with its path replaced.
func withPath(loc *url.URL, p string) string {
	u := *loc
	u.Path = p
	u.RawPath = ""
	return u.String()
}

// parseScheme parses location and checks that it belongs to one of schemes.
func parseScheme(location string, schemes ...string) (*url.URL, error) {
	loc, appErr := ParseLocation(location)
	if appErr != nil {
		return nil, appErr
	}
	for _, s := range schemes {
		if loc.Scheme == s {
			return loc, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedScheme, "%s on a %s filesystem", loc.Scheme, schemes[0])
}
