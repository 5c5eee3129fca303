// Package meta holds the catalog objects exchanged between the managers, the
// backends and the entity store.
package meta

import (
	"time"

	"github.com/google/uuid"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/pkg/types"
)

type AuditInfo struct {
	Creator          string     `json:"creator,omitempty"`
	CreateTime       time.Time  `json:"createTime"`
	LastModifier     string     `json:"lastModifier,omitempty"`
	LastModifiedTime *time.Time `json:"lastModifiedTime,omitempty"`
}

func NewAuditInfo(creator string) *AuditInfo {
	return &AuditInfo{
		Creator:    creator,
		CreateTime: time.Now().UTC(),
	}
}

type Metalake struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties"`
	Audit      *AuditInfo        `json:"audit,omitempty"`
}

type Catalog struct {
	ID         uuid.UUID         `json:"id"`
	Metalake   string            `json:"metalake"`
	Name       string            `json:"name"`
	Type       types.CatalogType `json:"type"`
	Provider   string            `json:"provider"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties"`
	Audit      *AuditInfo        `json:"audit,omitempty"`
}

// Identifier returns metalake.catalog.
func (c *Catalog) Identifier() types.NameIdentifier {
	id, _ := types.NewNameIdentifier(c.Metalake, c.Name)
	return id
}

type Schema struct {
	Name       string            `json:"name"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties"`
	Audit      *AuditInfo        `json:"audit,omitempty"`
}

type Column struct {
	Name         string         `json:"name"`
	Type         datatypes.Type `json:"type"`
	Nullable     bool           `json:"nullable"`
	Comment      *string        `json:"comment,omitempty"`
	DefaultValue *string        `json:"defaultValue,omitempty"`
}

type Table struct {
	Name       string            `json:"name"`
	Comment    *string           `json:"comment,omitempty"`
	Columns    []Column          `json:"columns"`
	Properties map[string]string `json:"properties"`
	Audit      *AuditInfo        `json:"audit,omitempty"`
}

type Fileset struct {
	Name            string            `json:"name"`
	Comment         *string           `json:"comment,omitempty"`
	Type            types.FilesetType `json:"type"`
	StorageLocation string            `json:"storageLocation"`
	Properties      map[string]string `json:"properties"`
	Audit           *AuditInfo        `json:"audit,omitempty"`
}

// ValidateColumns checks that a table definition has at least one column and
// that every column is named, typed and unique.
func ValidateColumns(columns []Column) apperrors.Error {
	if len(columns) == 0 {
		return caterrors.ErrInvalidArgument.Msg("a table requires at least one column")
	}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return caterrors.ErrInvalidArgument.Msgf("column %d has no name", i)
		}
		if !c.Type.IsValid() {
			return caterrors.ErrInvalidArgument.Msgf("column %q has no type", c.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return caterrors.ErrInvalidArgument.Msgf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// CopyProperties returns a non-nil copy of props.
func CopyProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
