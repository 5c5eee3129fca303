package entitystore

import (
	"context"
	"errors"

	"github.com/avast/retry-go/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

const conflictRetries = 5

// BadgerStore keeps entities in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens the store at dir. An empty dir keeps everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction committed a conflicting write first.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return retry.Do(
		func() error { return s.db.Update(fn) },
		retry.Context(ctx),
		retry.Attempts(conflictRetries),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, badger.ErrConflict) }),
	)
}

func (s *BadgerStore) Put(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, value any, overwrite bool) apperrors.Error {
	if err := checkIdent(kind, ident); err != nil {
		return err
	}
	b, appErr := encode(value)
	if appErr != nil {
		return appErr
	}
	key := []byte(entityKey(kind, ident))
	err := s.update(ctx, func(txn *badger.Txn) error {
		if !overwrite {
			_, err := txn.Get(key)
			if err == nil {
				return alreadyExists(kind, ident)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set(key, b)
	})
	return storeError(ctx, err, "put "+string(kind))
}

func (s *BadgerStore) Get(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier, out any) apperrors.Error {
	if err := checkIdent(kind, ident); err != nil {
		return err
	}
	var b []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entityKey(kind, ident)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(kind, ident)
		}
		if err != nil {
			return err
		}
		b, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return storeError(ctx, err, "get "+string(kind))
	}
	return decode(b, out)
}

func (s *BadgerStore) Exists(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(kind, ident); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(entityKey(kind, ident)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return false, storeError(ctx, err, "lookup "+string(kind))
	}
	return found, nil
}

func (s *BadgerStore) List(ctx context.Context, kind types.EntityKind, ns types.Namespace) ([]types.NameIdentifier, apperrors.Error) {
	if err := checkNamespace(kind, ns); err != nil {
		return nil, err
	}
	prefix := []byte(childPrefix(kind, ns))
	var idents []types.NameIdentifier
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ident, err := identFromKey(string(it.Item().Key()))
			if err != nil {
				return err
			}
			idents = append(idents, ident)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(ctx, err, "list "+string(kind))
	}
	return idents, nil
}

func (s *BadgerStore) Delete(ctx context.Context, kind types.EntityKind, ident types.NameIdentifier) (bool, apperrors.Error) {
	if err := checkIdent(kind, ident); err != nil {
		return false, err
	}
	key := []byte(entityKey(kind, ident))
	existed := false
	err := s.update(ctx, func(txn *badger.Txn) error {
		existed = false
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, storeError(ctx, err, "delete "+string(kind))
	}
	return existed, nil
}

func (s *BadgerStore) DeleteChildren(ctx context.Context, ident types.NameIdentifier) apperrors.Error {
	ns, err := ident.AsNamespace()
	if err != nil {
		return ErrStore.MsgErr("invalid parent identifier", err)
	}
	var keys [][]byte
	err = s.db.View(func(txn *badger.Txn) error {
		for _, kind := range allKinds {
			if kind.Depth() <= ident.Depth() {
				continue
			}
			prefix := []byte(childPrefix(kind, ns))
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return storeError(ctx, err, "scan children")
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return storeError(ctx, err, "delete children")
		}
	}
	if err := wb.Flush(); err != nil {
		return storeError(ctx, err, "delete children")
	}
	log.Ctx(ctx).Debug().Str("parent", ident.String()).Int("entities", len(keys)).Msg("deleted child entities")
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func storeError(ctx context.Context, err error, op string) apperrors.Error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Kind() != "" {
		return appErr
	}
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("entity store failure")
	return ErrStore.MsgErr(op, err)
}
