package security

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	krbclient "github.com/jcmturner/gokrb5/v8/client"
	"github.com/rs/zerolog/log"
	"github.com/tansive/metacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Operation is a backend call run under an explicit identity.
type Operation func(ctx context.Context, id Identity) error

// Context executes the backend calls of one catalog under the configured
// identity. It is safe for concurrent use; the only shared state is the
// service login, which is refreshed at most once per check interval.
type Context struct {
	cfg  *AuthConfig
	auth Authenticator
	now  func() time.Time

	// login is a one slot semaphore guarding the fields below, so that waiting
	// for it honours context cancellation.
	login    chan struct{}
	client   *krbclient.Client
	loggedIn bool
	loginAt  time.Time
}

// NewContext builds the security context of a catalog. auth may be nil when
// authentication is disabled.
func NewContext(cfg *AuthConfig, auth Authenticator) (*Context, apperrors.Error) {
	if cfg == nil {
		cfg = &AuthConfig{}
	}
	if cfg.Enabled && cfg.Type == "" {
		c := *cfg
		c.Type = AuthTypeKerberos
		cfg = &c
	}
	if cfg.Kerberos() && auth == nil {
		return nil, caterrors.ErrInvalidConfiguration.Msg("kerberos authentication is enabled but no authenticator is configured")
	}
	if !cfg.Kerberos() {
		auth = nil
	}
	return &Context{
		cfg:   cfg,
		auth:  auth,
		now:   time.Now,
		login: make(chan struct{}, 1),
	}, nil
}

// NewContextFromProperties parses the catalog properties and builds the
// authenticator through factory.
func NewContextFromProperties(props map[string]string, factory AuthenticatorFactory) (*Context, apperrors.Error) {
	cfg, err := ParseAuthConfig(props)
	if err != nil {
		return nil, err
	}
	var auth Authenticator
	if cfg.Kerberos() {
		if factory == nil {
			return nil, caterrors.ErrInvalidConfiguration.Msg("kerberos authentication is not available")
		}
		a, ferr := factory(cfg)
		if ferr != nil {
			return nil, caterrors.ErrInvalidConfiguration.MsgErr("unable to set up kerberos authentication", ferr)
		}
		auth = a
	}
	return NewContext(cfg, auth)
}

func (c *Context) Mode() Mode {
	return c.cfg.Mode()
}

func (c *Context) Config() *AuthConfig {
	return c.cfg
}

// DoAs runs op under the effective identity of the caller found in ctx. In
// impersonated mode a caller is required. When op fails because the service
// credentials expired, DoAs logs in again and retries op once.
func (c *Context) DoAs(ctx context.Context, op Operation) error {
	first := true
	return retry.Do(
		func() error {
			id, err := c.identity(ctx, !first)
			first = false
			if err != nil {
				return retry.Unrecoverable(err)
			}
			return op(WithIdentity(ctx, id), id)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return c.auth != nil && retry.IsRecoverable(err) && IsCredentialExpiry(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Str("principal", c.auth.Principal()).Msg("credentials expired, logging in again")
		}),
	)
}

// identity resolves the identity of one attempt.
func (c *Context) identity(ctx context.Context, relogin bool) (Identity, apperrors.Error) {
	var id Identity
	if c.auth != nil {
		cl, err := c.serviceClient(ctx, relogin)
		if err != nil {
			return Identity{}, err
		}
		id.Kerberos = cl
		id.User = ShortName(c.auth.Principal())
	}
	if c.Mode() == ModeImpersonated {
		caller := catcommon.CallerFromContext(ctx)
		if caller == "" {
			return Identity{}, caterrors.ErrMissingCallerIdentity
		}
		id.RealUser = c.auth.Principal()
		id.User = caller
	}
	return id, nil
}

// serviceClient returns the logged in service client, logging in again when
// forced, when the credentials expired or when the check interval elapsed.
func (c *Context) serviceClient(ctx context.Context, force bool) (*krbclient.Client, apperrors.Error) {
	select {
	case c.login <- struct{}{}:
	case <-ctx.Done():
		return nil, caterrors.ErrBackendUnavailable.MsgErr("timed out waiting for kerberos login", ctx.Err())
	}
	defer func() { <-c.login }()

	if !force && c.loggedIn {
		fresh := c.cfg.CheckInterval <= 0 || c.now().Sub(c.loginAt) < c.cfg.CheckInterval
		if fresh && (c.client == nil || c.client.Credentials == nil || !c.client.Credentials.Expired()) {
			return c.client, nil
		}
	}

	cl, err := c.loginWithTimeout(ctx)
	if err != nil {
		return nil, err
	}
	if c.client != nil {
		c.client.Destroy()
	}
	c.client = cl
	c.loggedIn = true
	c.loginAt = c.now()
	return cl, nil
}

func (c *Context) loginWithTimeout(ctx context.Context) (*krbclient.Client, apperrors.Error) {
	timeout := c.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		cl  *krbclient.Client
		err error
	}
	ch := make(chan result, 1)
	go func() {
		cl, err := c.auth.Login(lctx)
		ch <- result{cl, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Ctx(ctx).Error().Err(r.err).Str("principal", c.auth.Principal()).Msg("kerberos login failed")
			return nil, caterrors.ErrSecurityFailure.MsgErr("kerberos login failed for "+c.auth.Principal(), r.err)
		}
		return r.cl, nil
	case <-lctx.Done():
		log.Ctx(ctx).Error().Str("principal", c.auth.Principal()).Dur("timeout", timeout).Msg("kerberos login timed out")
		return nil, caterrors.ErrBackendUnavailable.MsgErr("kerberos login timed out for "+c.auth.Principal(), lctx.Err())
	}
}

// Close releases the service login.
func (c *Context) Close() {
	c.login <- struct{}{}
	defer func() { <-c.login }()
	if c.client != nil {
		c.client.Destroy()
		c.client = nil
	}
	c.loggedIn = false
}
