package postgresql

import (
	"fmt"
	"strings"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/catalogsrv/rel/datatypes"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

const (
	backendName = "postgresql"

	// PostgreSQL reports array columns with the element type name prefixed by
	// an underscore, and accepts a [] suffix in DDL.
	arrayPrefix = "_"
	arraySuffix = "[]"

	typeBool        = "bool"
	typeInt2        = "int2"
	typeInt4        = "int4"
	typeInt8        = "int8"
	typeFloat4      = "float4"
	typeFloat8      = "float8"
	typeDate        = "date"
	typeTime        = "time"
	typeTimestamp   = "timestamp"
	typeTimestampTZ = "timestamptz"
	typeNumeric     = "numeric"
	typeVarchar     = "varchar"
	typeBpchar      = "bpchar"
	typeText        = "text"
	typeBytea       = "bytea"
)

// TypeConverter maps logical types to PostgreSQL type names.
type TypeConverter struct{}

var _ datatypes.Converter = TypeConverter{}

func (TypeConverter) Backend() string {
	return backendName
}

func (c TypeConverter) ToLogical(native datatypes.NativeType) (datatypes.Type, apperrors.Error) {
	name := strings.ToLower(native.Name)
	if strings.HasPrefix(name, arrayPrefix) {
		elemNative := native
		elemNative.Name = native.Name[len(arrayPrefix):]
		elem, err := c.ToLogical(elemNative)
		if err != nil {
			return datatypes.Type{}, err
		}
		return datatypes.List(elem, false)
	}

	switch name {
	case typeBool:
		return datatypes.Boolean(), nil
	case typeInt2:
		return datatypes.Short(), nil
	case typeInt4:
		return datatypes.Integer(), nil
	case typeInt8:
		return datatypes.Long(), nil
	case typeFloat4:
		return datatypes.Float(), nil
	case typeFloat8:
		return datatypes.Double(), nil
	case typeDate:
		return datatypes.Date(), nil
	case typeTime:
		return datatypes.Time(), nil
	case typeTimestamp:
		return datatypes.Timestamp(false), nil
	case typeTimestampTZ:
		return datatypes.Timestamp(true), nil
	case typeNumeric:
		if native.Size == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "precision", backendName)
		}
		if native.Scale == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "scale", backendName)
		}
		return datatypes.Decimal(*native.Size, *native.Scale)
	case typeVarchar:
		if native.Size == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "length", backendName)
		}
		return datatypes.VarChar(*native.Size)
	case typeBpchar:
		if native.Size == nil {
			return datatypes.Type{}, datatypes.MissingParam(native, "length", backendName)
		}
		return datatypes.Char(*native.Size)
	case typeText:
		return datatypes.String(), nil
	case typeBytea:
		return datatypes.Binary(), nil
	}
	return datatypes.External(native.Name)
}

func (c TypeConverter) FromLogical(t datatypes.Type) (string, apperrors.Error) {
	switch t.Kind() {
	case datatypes.KindBoolean:
		return typeBool, nil
	case datatypes.KindShort:
		return typeInt2, nil
	case datatypes.KindInteger:
		return typeInt4, nil
	case datatypes.KindLong:
		return typeInt8, nil
	case datatypes.KindFloat:
		return typeFloat4, nil
	case datatypes.KindDouble:
		return typeFloat8, nil
	case datatypes.KindDate:
		return typeDate, nil
	case datatypes.KindTime:
		return typeTime, nil
	case datatypes.KindTimestamp:
		if t.WithTimeZone() {
			return typeTimestampTZ, nil
		}
		return typeTimestamp, nil
	case datatypes.KindDecimal:
		return fmt.Sprintf("%s(%d,%d)", typeNumeric, t.Precision(), t.Scale()), nil
	case datatypes.KindVarChar:
		return fmt.Sprintf("%s(%d)", typeVarchar, t.Length()), nil
	case datatypes.KindChar:
		return fmt.Sprintf("%s(%d)", typeBpchar, t.Length()), nil
	case datatypes.KindString:
		return typeText, nil
	case datatypes.KindBinary:
		return typeBytea, nil
	case datatypes.KindList:
		return c.fromList(t)
	case datatypes.KindExternal:
		return datatypes.ExternalName(t, backendName)
	}
	return "", datatypes.Unsupported(t, backendName)
}

func (c TypeConverter) fromList(t datatypes.Type) (string, apperrors.Error) {
	if t.ElemNullable() {
		return "", caterrors.ErrUnsupportedType.Msgf("%s arrays do not support nullable elements: %s", backendName, t)
	}
	if t.Elem().Kind() == datatypes.KindList {
		return "", caterrors.ErrUnsupportedType.Msgf("%s does not support nested arrays: %s", backendName, t)
	}
	elem, err := c.FromLogical(t.Elem())
	if err != nil {
		return "", err
	}
	return elem + arraySuffix, nil
}
