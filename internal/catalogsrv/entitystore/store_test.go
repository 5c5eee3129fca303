package entitystore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/pkg/types"
)

type record struct {
	Name    string            `json:"name"`
	Comment *string           `json:"comment,omitempty"`
	Props   map[string]string `json:"props"`
}

func runStoreTests(t *testing.T, s Store) {
	ctx := log.Logger.WithContext(context.Background())
	lake := types.MustNameIdentifier("lake")
	cat := types.MustNameIdentifier("lake", "files")
	schema := types.MustNameIdentifier("lake", "files", "raw")
	fs1 := types.MustNameIdentifier("lake", "files", "raw", "events")
	fs2 := types.MustNameIdentifier("lake", "files", "raw", "clicks")

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, types.MetalakeKind, lake, record{Name: "lake"}, false))
		err := s.Put(ctx, types.MetalakeKind, lake, record{Name: "other"}, false)
		assert.ErrorIs(t, err, ErrEntityAlreadyExists)
		assert.Equal(t, caterrors.KindAlreadyExists, caterrors.Kind(err))

		var got record
		require.NoError(t, s.Get(ctx, types.MetalakeKind, lake, &got))
		assert.Equal(t, "lake", got.Name)

		comment := "updated"
		require.NoError(t, s.Put(ctx, types.MetalakeKind, lake, record{Name: "lake", Comment: &comment}, true))
		require.NoError(t, s.Get(ctx, types.MetalakeKind, lake, &got))
		require.NotNil(t, got.Comment)
		assert.Equal(t, "updated", *got.Comment)

		err = s.Get(ctx, types.MetalakeKind, types.MustNameIdentifier("nope"), &got)
		assert.ErrorIs(t, err, ErrEntityNotFound)
		assert.Equal(t, caterrors.KindNotFound, caterrors.Kind(err))
	})

	t.Run("kind checks depth", func(t *testing.T) {
		err := s.Put(ctx, types.SchemaKind, cat, record{}, false)
		assert.ErrorIs(t, err, caterrors.ErrInvalidIdentifier)
		_, err = s.List(ctx, types.FilesetKind, types.MustNamespace("lake"))
		assert.ErrorIs(t, err, caterrors.ErrInvalidIdentifier)
	})

	t.Run("list direct children", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, types.CatalogKind, cat, record{Name: "files"}, false))
		require.NoError(t, s.Put(ctx, types.SchemaKind, schema, record{Name: "raw"}, false))
		require.NoError(t, s.Put(ctx, types.FilesetKind, fs1, record{Name: "events"}, false))
		require.NoError(t, s.Put(ctx, types.FilesetKind, fs2, record{Name: "clicks"}, false))
		require.NoError(t, s.Put(ctx, types.FilesetKind, types.MustNameIdentifier("lake", "files", "raw2", "x"), record{Name: "x"}, false))

		list, err := s.List(ctx, types.FilesetKind, types.MustNamespace("lake", "files", "raw"))
		require.NoError(t, err)
		assert.Equal(t, []types.NameIdentifier{fs2, fs1}, list)

		list, err = s.List(ctx, types.SchemaKind, types.MustNamespace("lake", "files"))
		require.NoError(t, err)
		assert.Equal(t, []types.NameIdentifier{schema}, list)

		list, err = s.List(ctx, types.TableKind, types.MustNamespace("lake", "files", "raw"))
		require.NoError(t, err)
		assert.Empty(t, list)

		ok, err := s.Exists(ctx, types.FilesetKind, fs1)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Exists(ctx, types.TableKind, fs1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		existed, err := s.Delete(ctx, types.FilesetKind, fs2)
		require.NoError(t, err)
		assert.True(t, existed)
		existed, err = s.Delete(ctx, types.FilesetKind, fs2)
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("delete children", func(t *testing.T) {
		require.NoError(t, s.DeleteChildren(ctx, cat))
		for _, id := range []types.NameIdentifier{schema, fs1} {
			kind := types.SchemaKind
			if id.Depth() == 4 {
				kind = types.FilesetKind
			}
			ok, err := s.Exists(ctx, kind, id)
			require.NoError(t, err)
			assert.False(t, ok, id.String())
		}
		ok, err := s.Exists(ctx, types.CatalogKind, cat)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 16)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := types.MustNameIdentifier("lake", fmt.Sprintf("c%d", i%4))
				if err := s.Put(ctx, types.CatalogKind, id, record{Name: id.Name()}, false); err != nil {
					errs[i] = err
				}
			}(i)
		}
		wg.Wait()
		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrEntityAlreadyExists)
				failed++
			}
		}
		assert.Equal(t, 12, failed)
	})
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger("")
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, types.MetalakeKind, types.MustNameIdentifier("lake"), record{Name: "lake"}, false))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	ok, appErr := s.Exists(ctx, types.MetalakeKind, types.MustNameIdentifier("lake"))
	require.NoError(t, appErr)
	assert.True(t, ok)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("METACATALOG_TEST_PG_DSN")
	if url == "" {
		t.Skip("METACATALOG_TEST_PG_DSN is not set")
	}
	ctx := log.Logger.WithContext(context.Background())
	s, err := OpenPostgres(ctx, strings.TrimPrefix(url, "jdbc:"))
	require.NoError(t, err)
	defer s.Close()
	cleanup := func() {
		_ = s.DeleteChildren(ctx, types.MustNameIdentifier("lake"))
		_, _ = s.Delete(ctx, types.MetalakeKind, types.MustNameIdentifier("lake"))
	}
	cleanup()
	defer cleanup()
	runStoreTests(t, s)
}
