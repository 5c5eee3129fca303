package filesystem

import (
	"context"
	"net"
	"net/url"
	"os"
	"sort"

	"github.com/colinmarc/hdfs/v2"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
)

const (
	HDFSScheme = "hdfs"

	NamenodePrincipalKey = "hdfs.namenode.kerberos.principal"

	defaultNamenodePort = "8020"
)

type hdfsFS struct {
	loc    *url.URL
	client *hdfs.Client
}

// openHDFS connects to the namenode named by the location host. With kerberos
// the client authenticates as the service principal; otherwise it asserts the
// effective user name.
func openHDFS(_ context.Context, loc *url.URL, id security.Identity, props map[string]string) (FileSystem, error) {
	addr := loc.Host
	if addr == "" {
		return nil, caterrors.ErrInvalidArgument.Msgf("hdfs location %s has no namenode", loc)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultNamenodePort)
	}
	opts := hdfs.ClientOptions{
		Addresses: []string{addr},
		User:      id.User,
	}
	if id.Kerberos != nil {
		if id.Impersonated() {
			return nil, caterrors.ErrUnsupportedOperation.Msg("hdfs proxy users are not supported with kerberos authentication")
		}
		spn := props[NamenodePrincipalKey]
		if spn == "" {
			return nil, caterrors.ErrInvalidConfiguration.Msgf("%s is required for kerberos hdfs access", NamenodePrincipalKey)
		}
		opts.KerberosClient = id.Kerberos
		opts.KerberosServicePrincipleName = spn
	}
	if opts.User == "" {
		opts.User = processUser()
	}
	client, err := hdfs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &hdfsFS{loc: loc, client: client}, nil
}

func (h *hdfsFS) path(location string) (string, error) {
	loc, err := parseScheme(location, HDFSScheme)
	if err != nil {
		return "", err
	}
	if loc.Host != h.loc.Host {
		return "", pathError("open", location, os.ErrInvalid)
	}
	return loc.Path, nil
}

func (h *hdfsFS) MkdirAll(ctx context.Context, location string) error {
	p, err := h.path(location)
	if err != nil {
		return err
	}
	return h.client.MkdirAll(p, 0o755)
}

func (h *hdfsFS) Exists(ctx context.Context, location string) (bool, error) {
	p, err := h.path(location)
	if err != nil {
		return false, err
	}
	_, err = h.client.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (h *hdfsFS) Stat(ctx context.Context, location string) (*FileInfo, error) {
	p, err := h.path(location)
	if err != nil {
		return nil, err
	}
	fi, err := h.client.Stat(p)
	if err != nil {
		return nil, err
	}
	return h.info(p, fi), nil
}

func (h *hdfsFS) List(ctx context.Context, location string) ([]FileInfo, error) {
	p, err := h.path(location)
	if err != nil {
		return nil, err
	}
	entries, err := h.client.ReadDir(p)
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, fi := range entries {
		out = append(out, *h.info(Join(p, fi.Name()), fi))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (h *hdfsFS) RemoveAll(ctx context.Context, location string) error {
	p, err := h.path(location)
	if err != nil {
		return err
	}
	if p == "/" {
		return pathError("remove", location, os.ErrPermission)
	}
	err = h.client.RemoveAll(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (h *hdfsFS) Close() error {
	return h.client.Close()
}

func (h *hdfsFS) info(p string, fi os.FileInfo) *FileInfo {
	info := &FileInfo{Path: withPath(h.loc, p), IsDir: fi.IsDir()}
	if hfi, ok := fi.(*hdfs.FileInfo); ok {
		info.Owner = hfi.Owner()
	}
	return info
}

func init() {
	Register(HDFSScheme, openHDFS)
}
