package duckdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	duckdbdriver "github.com/duckdb/duckdb-go/v2"
	krbclient "github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/jdbc"
	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/pkg/types"
)

func strPtr(s string) *string { return &s }

type nopAuthenticator struct{}

func (nopAuthenticator) Principal() string { return "svc@EXAMPLE.COM" }

func (nopAuthenticator) Login(ctx context.Context) (*krbclient.Client, error) { return nil, nil }

// newTestExecutor opens a fresh in-memory database. DuckDB rejects
// concurrent catalog writes from separate transactions, so tests that write
// concurrently use a single connection.
func newTestExecutor(t *testing.T, poolSize int) *jdbc.Executor {
	ctx := log.Logger.WithContext(context.Background())
	cfg, err := jdbc.ParseConfig(map[string]string{
		jdbc.URLKey:         "jdbc:duckdb:",
		jdbc.DatabaseKey:    "memory",
		jdbc.PoolMaxSizeKey: fmt.Sprint(poolSize),
	})
	require.NoError(t, err)
	sec, err := security.NewContext(nil, nil)
	require.NoError(t, err)
	exec, err := jdbc.NewExecutor(ctx, NewDialect(), cfg, sec)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestDSN(t *testing.T) {
	d := NewDialect()
	tests := []struct {
		url  string
		want string
	}{
		{"jdbc:duckdb:", ""},
		{"jdbc:duckdb::memory:", ""},
		{"jdbc:duckdb:/data/lake.db", "/data/lake.db"},
		{"jdbc:duckdb:/data/lake.db?access_mode=read_only", "/data/lake.db?access_mode=read_only"},
	}
	for _, tt := range tests {
		dsn, err := d.DSN(&jdbc.Config{URL: tt.url})
		require.NoError(t, err)
		assert.Equal(t, tt.want, dsn)
	}
	_, err := d.DSN(&jdbc.Config{URL: "jdbc:postgresql://db/"})
	assert.Error(t, err)
	_, err = d.DSN(&jdbc.Config{URL: "jdbc:duckdb:", Driver: "pgx"})
	assert.Error(t, err)
}

func TestStatements(t *testing.T) {
	d := NewDialect()

	_, err := d.CreateSchemaStatements("s", strPtr("c"))
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedOperation)

	stmts, err := d.CreateTableStatements("s", "t", []jdbc.ColumnDef{
		{Name: "id", NativeType: "bigint"},
		{Name: "note", NativeType: "varchar", Nullable: true, Comment: strPtr(`it's \n`)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE \"s\".\"t\" (\n  \"id\" bigint NOT NULL,\n  \"note\" varchar\n)",
		`COMMENT ON COLUMN "s"."t"."note" IS 'it''s \n'`,
	}, stmts)
}

func TestImpersonationRejected(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	cfg, err := jdbc.ParseConfig(map[string]string{jdbc.URLKey: "jdbc:duckdb:"})
	require.NoError(t, err)
	sec, err := security.NewContext(&security.AuthConfig{
		Enabled:              true,
		ImpersonationEnabled: true,
		Principal:            "svc@EXAMPLE.COM",
	}, nopAuthenticator{})
	require.NoError(t, err)
	_, err = jdbc.NewExecutor(ctx, NewDialect(), cfg, sec)
	assert.ErrorIs(t, err, caterrors.ErrInvalidConfiguration)
}

type countingAuthenticator struct {
	logins int
}

func (a *countingAuthenticator) Principal() string { return "svc@EXAMPLE.COM" }

func (a *countingAuthenticator) Login(ctx context.Context) (*krbclient.Client, error) {
	a.logins++
	return nil, nil
}

func TestRunRetriesAfterTicketExpiry(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	cfg, err := jdbc.ParseConfig(map[string]string{jdbc.URLKey: "jdbc:duckdb:", jdbc.DatabaseKey: "memory"})
	require.NoError(t, err)
	auth := &countingAuthenticator{}
	sec, err := security.NewContext(&security.AuthConfig{
		Enabled:   true,
		Type:      security.AuthTypeKerberos,
		Principal: auth.Principal(),
	}, auth)
	require.NoError(t, err)
	exec, err := jdbc.NewExecutor(ctx, NewDialect(), cfg, sec)
	require.NoError(t, err)
	defer exec.Close()

	calls := 0
	appErr := exec.Run(ctx, "check schema", func(ctx context.Context, q jdbc.Querier) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("connect: %w", messages.KRBError{ErrorCode: errorcode.KRB_AP_ERR_TKT_EXPIRED})
		}
		_, err := q.ExecContext(ctx, "SELECT 1")
		return err
	})
	require.NoError(t, appErr)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, auth.logins)

	calls = 0
	appErr = exec.Run(ctx, "check schema", func(ctx context.Context, q jdbc.Querier) error {
		calls++
		return messages.KRBError{ErrorCode: errorcode.KRB_AP_ERR_TKT_EXPIRED}
	})
	assert.ErrorIs(t, appErr, caterrors.ErrCredentialsExpired)
	assert.Equal(t, 2, calls)
}

func TestSchemaLifecycle(t *testing.T) {
	exec := newTestExecutor(t, 4)
	c := jdbc.NewCatalog(exec)
	ctx := log.Logger.WithContext(context.Background())
	ns := types.MustNamespace("lake", "duck")
	ident := types.MustNameIdentifier("lake", "duck", "sales")

	s, err := c.CreateSchema(ctx, ident, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "sales", s.Name)
	assert.Nil(t, s.Comment)
	assert.NotNil(t, s.Properties)

	_, err = c.CreateSchema(ctx, ident, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrSchemaAlreadyExists)
	assert.Equal(t, caterrors.KindAlreadyExists, err.Kind())

	_, err = c.CreateSchema(ctx, types.MustNameIdentifier("lake", "duck", "p"), nil, map[string]string{"owner": "x"})
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedOperation)
	_, err = c.CreateSchema(ctx, types.MustNameIdentifier("lake", "duck", "p"), strPtr("commented"), nil)
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedOperation)
	ok, err := c.SchemaExists(ctx, types.MustNameIdentifier("lake", "duck", "p"))
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := c.LoadSchema(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, "sales", loaded.Name)

	list, err := c.ListSchemas(ctx, ns)
	require.NoError(t, err)
	assert.Contains(t, list, ident)
	assert.Contains(t, list, types.MustNameIdentifier("lake", "duck", "main"))
	for _, id := range list {
		for _, sys := range systemSchemas {
			assert.False(t, strings.EqualFold(sys, id.Name()), "system schema %s listed", id.Name())
		}
	}

	_, err = c.LoadSchema(ctx, types.MustNameIdentifier("lake", "duck", "missing"))
	assert.ErrorIs(t, err, caterrors.ErrNoSuchSchema)
	assert.ErrorIs(t, c.DropSchema(ctx, types.MustNameIdentifier("lake", "duck", "missing"), false), caterrors.ErrNoSuchSchema)

	_, err = c.CreateTable(ctx, types.MustNameIdentifier("lake", "duck", "sales", "orders"),
		[]meta.Column{{Name: "id", Type: datatypes.Long()}}, nil, nil)
	require.NoError(t, err)

	err = c.DropSchema(ctx, ident, false)
	assert.ErrorIs(t, err, caterrors.ErrNonEmptySchema)
	ok, err = c.SchemaExists(ctx, ident)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.DropSchema(ctx, ident, true))
	ok, err = c.SchemaExists(ctx, ident)
	require.NoError(t, err)
	assert.False(t, ok)

	requests, returns := exec.Stats()
	assert.Equal(t, requests, returns)
}

func TestTableRoundTrip(t *testing.T) {
	exec := newTestExecutor(t, 4)
	c := jdbc.NewCatalog(exec)
	ctx := log.Logger.WithContext(context.Background())

	_, err := c.CreateSchema(ctx, types.MustNameIdentifier("lake", "duck", "s"), nil, nil)
	require.NoError(t, err)

	nested := datatypes.Must(datatypes.List(datatypes.Must(datatypes.List(datatypes.String(), true)), true))
	columns := []meta.Column{
		{Name: "b", Type: datatypes.Boolean()},
		{Name: "i2", Type: datatypes.Short(), Nullable: true},
		{Name: "i4", Type: datatypes.Integer(), Nullable: true, DefaultValue: strPtr("42")},
		{Name: "i8", Type: datatypes.Long(), Nullable: true},
		{Name: "f4", Type: datatypes.Float(), Nullable: true},
		{Name: "f8", Type: datatypes.Double(), Nullable: true},
		{Name: "amount", Type: datatypes.Must(datatypes.Decimal(12, 2)), Nullable: true, Comment: strPtr("in cents")},
		{Name: "name", Type: datatypes.String(), Nullable: true},
		{Name: "d", Type: datatypes.Date(), Nullable: true},
		{Name: "t", Type: datatypes.Time(), Nullable: true},
		{Name: "ts", Type: datatypes.Timestamp(false), Nullable: true},
		{Name: "tstz", Type: datatypes.Timestamp(true), Nullable: true},
		{Name: "raw", Type: datatypes.Binary(), Nullable: true},
		{Name: "ints", Type: datatypes.Must(datatypes.List(datatypes.Integer(), true)), Nullable: true},
		{Name: "nested", Type: nested, Nullable: true},
	}
	ident := types.MustNameIdentifier("lake", "duck", "s", "everything")
	table, err := c.CreateTable(ctx, ident, columns, strPtr("all types"), nil)
	require.NoError(t, err)
	assert.Equal(t, "everything", table.Name)

	_, err = c.CreateTable(ctx, ident, columns, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrTableAlreadyExists)

	loaded, err := c.LoadTable(ctx, ident)
	require.NoError(t, err)
	require.NotNil(t, loaded.Comment)
	assert.Equal(t, "all types", *loaded.Comment)
	require.Len(t, loaded.Columns, len(columns))
	for i, want := range columns {
		got := loaded.Columns[i]
		assert.Equal(t, want.Name, got.Name)
		assert.True(t, want.Type.Equal(got.Type), "column %s: want %s, got %s", want.Name, want.Type, got.Type)
		assert.Equal(t, want.Nullable, got.Nullable, "column %s", want.Name)
	}
	require.NotNil(t, loaded.Columns[6].Comment)
	assert.Equal(t, "in cents", *loaded.Columns[6].Comment)
	require.NotNil(t, loaded.Columns[2].DefaultValue)
	assert.Contains(t, *loaded.Columns[2].DefaultValue, "42")

	tables, err := c.ListTables(ctx, types.MustNamespace("lake", "duck", "s"))
	require.NoError(t, err)
	assert.Equal(t, []types.NameIdentifier{ident}, tables)

	_, err = c.ListTables(ctx, types.MustNamespace("lake", "duck", "nope"))
	assert.ErrorIs(t, err, caterrors.ErrNoSuchSchema)

	require.NoError(t, c.DropTable(ctx, ident))
	assert.ErrorIs(t, c.DropTable(ctx, ident), caterrors.ErrNoSuchTable)
	_, err = c.LoadTable(ctx, ident)
	assert.ErrorIs(t, err, caterrors.ErrNoSuchTable)
}

func TestCreateTableRejectsInvalidColumns(t *testing.T) {
	exec := newTestExecutor(t, 4)
	c := jdbc.NewCatalog(exec)
	ctx := log.Logger.WithContext(context.Background())
	ident := types.MustNameIdentifier("lake", "duck", "main", "t")

	_, err := c.CreateTable(ctx, ident, nil, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrInvalidArgument)

	_, err = c.CreateTable(ctx, ident, []meta.Column{{Name: "c", Type: datatypes.Must(datatypes.VarChar(10))}}, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedType)

	_, err = c.CreateTable(ctx, ident, []meta.Column{{Name: "c", Type: datatypes.Must(datatypes.List(datatypes.Integer(), false))}}, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrUnsupportedType)
	assert.Equal(t, caterrors.KindInvalidArgument, err.Kind())

	requests, _ := exec.Stats()
	assert.Zero(t, requests)
}

func TestCreateTableRejectsInjectedSQL(t *testing.T) {
	exec := newTestExecutor(t, 4)
	c := jdbc.NewCatalog(exec)
	ctx := log.Logger.WithContext(context.Background())
	ident := types.MustNameIdentifier("lake", "duck", "main", "t")

	_, err := c.CreateTable(ctx, ident, []meta.Column{{
		Name:         "c",
		Type:         datatypes.Integer(),
		Nullable:     true,
		DefaultValue: strPtr("0); CREATE SCHEMA pwned; CREATE TABLE main.x (y int"),
	}}, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrInvalidArgument)

	_, err = c.CreateTable(ctx, ident, []meta.Column{{
		Name:     "c",
		Type:     datatypes.Must(datatypes.External("int); CREATE SCHEMA pwned; CREATE TABLE main.x (y int")),
		Nullable: true,
	}}, nil, nil)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)

	exists, err := c.SchemaExists(ctx, types.MustNameIdentifier("lake", "duck", "pwned"))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = c.TableExists(ctx, ident)
	require.NoError(t, err)
	assert.False(t, exists)

	tbl, err := c.CreateTable(ctx, ident, []meta.Column{{
		Name:         "c",
		Type:         datatypes.Integer(),
		Nullable:     true,
		DefaultValue: strPtr("(1 + 2)"),
	}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", tbl.Columns[0].Name)
}

func TestConcurrentSchemas(t *testing.T) {
	exec := newTestExecutor(t, 1)
	c := jdbc.NewCatalog(exec)
	ctx := log.Logger.WithContext(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.CreateSchema(ctx, types.MustNameIdentifier("lake", "duck", fmt.Sprintf("s%d", i)), nil, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := c.ListSchemas(ctx, types.MustNamespace("lake", "duck"))
	require.NoError(t, err)
	assert.Len(t, list, 9)
	requests, returns := exec.Stats()
	assert.Equal(t, requests, returns)
}

func TestTranslate(t *testing.T) {
	d := NewDialect()
	tests := []struct {
		err  *duckdbdriver.Error
		want error
	}{
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeCatalog, Msg: `Catalog Error: Schema with name "s" already exists!`}, caterrors.ErrSchemaAlreadyExists},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeCatalog, Msg: `Catalog Error: Table with name "t" already exists!`}, caterrors.ErrTableAlreadyExists},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeCatalog, Msg: `Catalog Error: Table with name t does not exist!`}, caterrors.ErrNoSuchTable},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeCatalog, Msg: `Catalog Error: Schema with name s does not exist!`}, caterrors.ErrNoSuchSchema},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeDependency, Msg: `Dependency Error: Cannot drop entry "s"`}, caterrors.ErrNonEmptySchema},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeInterrupt, Msg: `INTERRUPT Error: Interrupted!`}, caterrors.ErrBackendUnavailable},
		{&duckdbdriver.Error{Type: duckdbdriver.ErrorTypePermission, Msg: `Permission Error: read only`}, caterrors.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.err.Msg, func(t *testing.T) {
			assert.ErrorIs(t, d.Translate(fmt.Errorf("exec: %w", tt.err)), tt.want)
		})
	}
	assert.Nil(t, d.Translate(&duckdbdriver.Error{Type: duckdbdriver.ErrorTypeParser, Msg: "Parser Error: syntax"}))
	assert.Nil(t, d.Translate(fmt.Errorf("plain")))
}
