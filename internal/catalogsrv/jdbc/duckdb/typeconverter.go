package duckdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	backendName = "duckdb"
	listSuffix  = "[]"
)

// TypeConverter maps logical types to DuckDB type names. DuckDB list elements
// are always nullable, lists may nest, and VARCHAR carries no length.
type TypeConverter struct{}

var _ datatypes.Converter = TypeConverter{}

func (TypeConverter) Backend() string {
	return backendName
}

// ParseNative builds the descriptor of a DuckDB data_type string such as
// "DECIMAL(10,2)[]". Size and scale belong to the innermost element.
func ParseNative(dataType string) datatypes.NativeType {
	s := strings.ToLower(strings.TrimSpace(dataType))
	suffix := ""
	for strings.HasSuffix(s, listSuffix) {
		s = strings.TrimSuffix(s, listSuffix)
		suffix += listSuffix
	}
	n := datatypes.NativeType{Name: s + suffix}
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return n
	}
	params := strings.Split(s[open+1:len(s)-1], ",")
	size, err := strconv.Atoi(strings.TrimSpace(params[0]))
	if err != nil {
		return n
	}
	n.Name = strings.TrimSpace(s[:open]) + suffix
	n.Size = &size
	if len(params) > 1 {
		if scale, err := strconv.Atoi(strings.TrimSpace(params[1])); err == nil {
			n.Scale = &scale
		}
	}
	return n
}

func (c TypeConverter) ToLogical(native datatypes.NativeType) (datatypes.Type, apperrors.Error) {
	name := strings.ToLower(strings.TrimSpace(native.Name))
	if strings.HasSuffix(name, listSuffix) {
		elemNative := native
		elemNative.Name = strings.TrimSuffix(name, listSuffix)
		elem, err := c.ToLogical(elemNative)
		if err != nil {
			return datatypes.Type{}, err
		}
		return datatypes.List(elem, true)
	}

	switch name {
	case "boolean", "bool":
		return datatypes.Boolean(), nil
	case "smallint", "int2":
		return datatypes.Short(), nil
	case "integer", "int", "int4":
		return datatypes.Integer(), nil
	case "bigint", "int8":
		return datatypes.Long(), nil
	case "float", "real", "float4":
		return datatypes.Float(), nil
	case "double", "float8":
		return datatypes.Double(), nil
	case "decimal", "numeric":
		if native.Size == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "precision", backendName)
		}
		if native.Scale == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "scale", backendName)
		}
		return datatypes.Decimal(*native.Size, *native.Scale)
	case "varchar", "text", "string":
		return datatypes.String(), nil
	case "date":
		return datatypes.Date(), nil
	case "time":
		return datatypes.Time(), nil
	case "timestamp":
		return datatypes.Timestamp(false), nil
	case "timestamp with time zone", "timestamptz":
		return datatypes.Timestamp(true), nil
	case "blob", "bytea":
		return datatypes.Binary(), nil
	}
	return datatypes.External(native.Name)
}

func (c TypeConverter) FromLogical(t datatypes.Type) (string, apperrors.Error) {
	switch t.Kind() {
	case datatypes.KindBoolean:
		return "boolean", nil
	case datatypes.KindShort:
		return "smallint", nil
	case datatypes.KindInteger:
		return "integer", nil
	case datatypes.KindLong:
		return "bigint", nil
	case datatypes.KindFloat:
		return "float", nil
	case datatypes.KindDouble:
		return "double", nil
	case datatypes.KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision(), t.Scale()), nil
	case datatypes.KindString:
		return "varchar", nil
	case datatypes.KindDate:
		return "date", nil
	case datatypes.KindTime:
		return "time", nil
	case datatypes.KindTimestamp:
		if t.WithTimeZone() {
			return "timestamp with time zone", nil
		}
		return "timestamp", nil
	case datatypes.KindBinary:
		return "blob", nil
	case datatypes.KindList:
		if !t.ElemNullable() {
			return "", caterrors.ErrUnsupportedType.Msgf("%s list elements are always nullable: %s", backendName, t)
		}
		elem, err := c.FromLogical(t.Elem())
		if err != nil {
			return "", err
		}
		return elem + listSuffix, nil
	case datatypes.KindExternal:
		return datatypes.ExternalName(t, backendName)
	}
	return "", datatypes.Unsupported(t, backendName)
}
