package security

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	krbclient "github.com/jcmturner/gokrb5/v8/client"
	krbconfig "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultKrb5Conf is used when the service configuration names no krb5.conf.
const DefaultKrb5Conf = "/etc/krb5.conf"

// maxKeytabSize bounds a keytab fetched over http.
const maxKeytabSize = 1 << 20

// Authenticator logs the service identity in.
type Authenticator interface {
	Principal() string
	Login(ctx context.Context) (*krbclient.Client, error)
}

// AuthenticatorFactory builds the authenticator of a catalog from its parsed
// configuration.
type AuthenticatorFactory func(cfg *AuthConfig) (Authenticator, error)

// KerberosAuthenticator logs in with a keytab.
type KerberosAuthenticator struct {
	principal    string
	keytabURI    string
	krb5Conf     string
	fetchTimeout time.Duration
}

// NewKerberosFactory returns a factory whose authenticators read the given
// krb5.conf.
func NewKerberosFactory(krb5Conf string) AuthenticatorFactory {
	if krb5Conf == "" {
		krb5Conf = DefaultKrb5Conf
	}
	return func(cfg *AuthConfig) (Authenticator, error) {
		return &KerberosAuthenticator{
			principal:    cfg.Principal,
			keytabURI:    cfg.KeytabURI,
			krb5Conf:     krb5Conf,
			fetchTimeout: cfg.FetchTimeout,
		}, nil
	}
}

func (k *KerberosAuthenticator) Principal() string {
	return k.principal
}

func (k *KerberosAuthenticator) Login(ctx context.Context) (*krbclient.Client, error) {
	kt, err := LoadKeytab(ctx, k.keytabURI, k.fetchTimeout)
	if err != nil {
		return nil, err
	}
	conf, err := krbconfig.Load(k.krb5Conf)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", k.krb5Conf)
	}
	user, realm := SplitPrincipal(k.principal)
	cl := krbclient.NewWithKeytab(user, realm, kt, conf, krbclient.DisablePAFXFAST(true))
	if err := cl.Login(); err != nil {
		return nil, errors.Wrapf(err, "kerberos login as %s", k.principal)
	}
	log.Ctx(ctx).Info().Str("principal", k.principal).Msg("kerberos login succeeded")
	return cl, nil
}

// SplitPrincipal splits primary/instance@REALM into the user part and the realm.
func SplitPrincipal(principal string) (user, realm string) {
	at := strings.LastIndexByte(principal, '@')
	if at < 0 {
		return principal, ""
	}
	return principal[:at], principal[at+1:]
}

// ShortName returns the primary component of a principal.
func ShortName(principal string) string {
	user, _ := SplitPrincipal(principal)
	if i := strings.IndexByte(user, '/'); i >= 0 {
		return user[:i]
	}
	return user
}

// LoadKeytab reads a keytab from a local path, a file:// URI or an http(s)://
// URI. Remote fetches give up after timeout.
func LoadKeytab(ctx context.Context, uri string, timeout time.Duration) (*keytab.Keytab, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid keytab uri %q", uri)
	}
	var b []byte
	switch u.Scheme {
	case "", "file":
		b, err = os.ReadFile(u.Path)
		if err != nil {
			return nil, errors.Wrap(err, "reading keytab")
		}
	case "http", "https":
		b, err = fetchKeytab(ctx, uri, timeout)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported keytab uri scheme %q", u.Scheme)
	}
	kt := keytab.New()
	if err := kt.Unmarshal(b); err != nil {
		return nil, errors.Wrap(err, "parsing keytab")
	}
	return kt, nil
}

func fetchKeytab(ctx context.Context, uri string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building keytab request")
	}
	rsp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching keytab from %s", uri)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching keytab from %s: %s", uri, rsp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(rsp.Body, maxKeytabSize))
	if err != nil {
		return nil, errors.Wrapf(err, "reading keytab from %s", uri)
	}
	return b, nil
}
