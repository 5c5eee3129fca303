package catalog

import (
	"context"
	"time"

	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

const (
	schemaNamespaceDepth = 2
	childNamespaceDepth  = 3
)

type schemaView struct {
	c     *Catalog
	inner SupportsSchemas
}

func (v *schemaView) ListSchemas(ctx context.Context, ns types.Namespace) (out []types.NameIdentifier, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "listSchemas", start, err) }(time.Now())
	if err = v.c.checkNamespace(ns, schemaNamespaceDepth); err != nil {
		return nil, err
	}
	return v.inner.ListSchemas(ctx, ns)
}

func (v *schemaView) CreateSchema(ctx context.Context, ident types.NameIdentifier, comment *string, props map[string]string) (out *meta.Schema, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "createSchema", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.SchemaKind); err != nil {
		return nil, err
	}
	return v.inner.CreateSchema(ctx, ident, comment, props)
}

func (v *schemaView) LoadSchema(ctx context.Context, ident types.NameIdentifier) (out *meta.Schema, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "loadSchema", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.SchemaKind); err != nil {
		return nil, err
	}
	return v.inner.LoadSchema(ctx, ident)
}

func (v *schemaView) SchemaExists(ctx context.Context, ident types.NameIdentifier) (ok bool, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "schemaExists", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.SchemaKind); err != nil {
		return false, err
	}
	return v.inner.SchemaExists(ctx, ident)
}

func (v *schemaView) DropSchema(ctx context.Context, ident types.NameIdentifier, cascade bool) (err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "dropSchema", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.SchemaKind); err != nil {
		return err
	}
	return v.inner.DropSchema(ctx, ident, cascade)
}

type tableView struct {
	c     *Catalog
	inner TableCatalog
}

func (v *tableView) ListTables(ctx context.Context, ns types.Namespace) (out []types.NameIdentifier, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "listTables", start, err) }(time.Now())
	if err = v.c.checkNamespace(ns, childNamespaceDepth); err != nil {
		return nil, err
	}
	return v.inner.ListTables(ctx, ns)
}

func (v *tableView) CreateTable(ctx context.Context, ident types.NameIdentifier, columns []meta.Column, comment *string, props map[string]string) (out *meta.Table, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "createTable", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.TableKind); err != nil {
		return nil, err
	}
	return v.inner.CreateTable(ctx, ident, columns, comment, props)
}

func (v *tableView) LoadTable(ctx context.Context, ident types.NameIdentifier) (out *meta.Table, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "loadTable", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.TableKind); err != nil {
		return nil, err
	}
	return v.inner.LoadTable(ctx, ident)
}

func (v *tableView) TableExists(ctx context.Context, ident types.NameIdentifier) (ok bool, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "tableExists", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.TableKind); err != nil {
		return false, err
	}
	return v.inner.TableExists(ctx, ident)
}

func (v *tableView) DropTable(ctx context.Context, ident types.NameIdentifier) (err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "dropTable", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.TableKind); err != nil {
		return err
	}
	return v.inner.DropTable(ctx, ident)
}

type filesetView struct {
	c     *Catalog
	inner FilesetCatalog
}

func (v *filesetView) ListFilesets(ctx context.Context, ns types.Namespace) (out []types.NameIdentifier, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "listFilesets", start, err) }(time.Now())
	if err = v.c.checkNamespace(ns, childNamespaceDepth); err != nil {
		return nil, err
	}
	return v.inner.ListFilesets(ctx, ns)
}

func (v *filesetView) CreateFileset(ctx context.Context, ident types.NameIdentifier, comment *string, typ types.FilesetType, location string, props map[string]string) (out *meta.Fileset, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "createFileset", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.FilesetKind); err != nil {
		return nil, err
	}
	return v.inner.CreateFileset(ctx, ident, comment, typ, location, props)
}

func (v *filesetView) LoadFileset(ctx context.Context, ident types.NameIdentifier) (out *meta.Fileset, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "loadFileset", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.FilesetKind); err != nil {
		return nil, err
	}
	return v.inner.LoadFileset(ctx, ident)
}

func (v *filesetView) FilesetExists(ctx context.Context, ident types.NameIdentifier) (ok bool, err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "filesetExists", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.FilesetKind); err != nil {
		return false, err
	}
	return v.inner.FilesetExists(ctx, ident)
}

func (v *filesetView) DropFileset(ctx context.Context, ident types.NameIdentifier) (err apperrors.Error) {
	defer func(start time.Time) { v.c.observe(ctx, "dropFileset", start, err) }(time.Now())
	if err = v.c.checkIdent(ident, types.FilesetKind); err != nil {
		return err
	}
	return v.inner.DropFileset(ctx, ident)
}
