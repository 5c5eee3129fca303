package types

import (
	"strings"

	"github.com/pkg/errors"
)

type CatalogType string

const (
	CatalogTypeRelational CatalogType = "relational"
	CatalogTypeFileset    CatalogType = "fileset"
	CatalogTypeMessaging  CatalogType = "messaging"
)

var ErrInvalidCatalogType = errors.New("invalid catalog type")

// ParseCatalogType accepts the type name in any case.
func ParseCatalogType(s string) (CatalogType, error) {
	switch t := CatalogType(strings.ToLower(strings.TrimSpace(s))); t {
	case CatalogTypeRelational, CatalogTypeFileset, CatalogTypeMessaging:
		return t, nil
	}
	return "", errors.Wrapf(ErrInvalidCatalogType, "%q", s)
}

type FilesetType string

const (
	FilesetManaged  FilesetType = "managed"
	FilesetExternal FilesetType = "external"
)

var ErrInvalidFilesetType = errors.New("invalid fileset type")

// ParseFilesetType accepts the type name in any case. An empty string selects
// FilesetManaged.
func ParseFilesetType(s string) (FilesetType, error) {
	switch t := FilesetType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return FilesetManaged, nil
	case FilesetManaged, FilesetExternal:
		return t, nil
	}
	return "", errors.Wrapf(ErrInvalidFilesetType, "%q", s)
}

// EntityKind names the kind of object an identifier refers to.
type EntityKind string

const (
	MetalakeKind EntityKind = "metalake"
	CatalogKind  EntityKind = "catalog"
	SchemaKind   EntityKind = "schema"
	TableKind    EntityKind = "table"
	FilesetKind  EntityKind = "fileset"
)

// Depth is the number of identifier levels of an entity of kind k.
func (k EntityKind) Depth() int {
	switch k {
	case MetalakeKind:
		return 1
	case CatalogKind:
		return 2
	case SchemaKind:
		return 3
	case TableKind, FilesetKind:
		return 4
	}
	return 0
}
