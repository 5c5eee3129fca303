// Package datatypes is the backend independent column type system. A Type is a
// tagged union: Kind selects the variant and only the fields of that variant
// are meaningful.
package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindBoolean
	KindShort
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindDecimal
	KindChar
	KindVarChar
	KindString
	KindDate
	KindTime
	KindTimestamp
	KindBinary
	KindList
	KindExternal
)

const (
	MaxDecimalPrecision = 38
)

var kindNames = map[Kind]string{
	KindBoolean:   "boolean",
	KindShort:     "short",
	KindInteger:   "integer",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindDecimal:   "decimal",
	KindChar:      "char",
	KindVarChar:   "varchar",
	KindString:    "string",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindBinary:    "binary",
	KindList:      "list",
	KindExternal:  "external",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

type Type struct {
	kind         Kind
	precision    int
	scale        int
	length       int
	withTimeZone bool
	elem         *Type
	elemNullable bool
	raw          string
}

func Boolean() Type { return Type{kind: KindBoolean} }
func Short() Type { return Type{kind: KindShort} }
func Integer() Type { return Type{kind: KindInteger} }
func Long() Type { return Type{kind: KindLong} }
func Float() Type { return Type{kind: KindFloat} }
func Double() Type { return Type{kind: KindDouble} }
func String() Type { return Type{kind: KindString} }
func Date() Type { return Type{kind: KindDate} }
func Time() Type { return Type{kind: KindTime} }
func Binary() Type { return Type{kind: KindBinary} }

func Timestamp(withTimeZone bool) Type {
	return Type{kind: KindTimestamp, withTimeZone: withTimeZone}
}

// Decimal requires 1 <= precision <= 38 and 0 <= scale <= precision.
func Decimal(precision, scale int) (Type, apperrors.Error) {
	if precision < 1 || precision > MaxDecimalPrecision {
		return Type{}, caterrors.ErrInvalidType.Msgf("decimal precision must be in [1, %d], got %d", MaxDecimalPrecision, precision)
	}
	if scale < 0 || scale > precision {
		return Type{}, caterrors.ErrInvalidType.Msgf("decimal scale must be in [0, %d], got %d", precision, scale)
	}
	return Type{kind: KindDecimal, precision: precision, scale: scale}, nil
}

func Char(length int) (Type, apperrors.Error) {
	if length < 1 {
		return Type{}, caterrors.ErrInvalidType.Msgf("char length must be positive, got %d", length)
	}
	return Type{kind: KindChar, length: length}, nil
}

func VarChar(length int) (Type, apperrors.Error) {
	if length < 1 {
		return Type{}, caterrors.ErrInvalidType.Msgf("varchar length must be positive, got %d", length)
	}
	return Type{kind: KindVarChar, length: length}, nil
}

func List(elem Type, elemNullable bool) (Type, apperrors.Error) {
	if elem.kind == KindInvalid {
		return Type{}, caterrors.ErrInvalidType.Msg("list element type is not set")
	}
	e := elem
	return Type{kind: KindList, elem: &e, elemNullable: elemNullable}, nil
}

// External holds a native type name that has no logical counterpart.
func External(raw string) (Type, apperrors.Error) {
	if raw == "" {
		return Type{}, caterrors.ErrInvalidType.Msg("external type name is empty")
	}
	return Type{kind: KindExternal, raw: raw}, nil
}

// Must panics if err is not nil. Intended for constants and tests.
func Must(t Type, err apperrors.Error) Type {
	if err != nil {
		panic(err)
	}
	return t
}

func (t Type) Kind() Kind { return t.kind }
func (t Type) Precision() int { return t.precision }
func (t Type) Scale() int { return t.scale }
func (t Type) Length() int { return t.length }
func (t Type) WithTimeZone() bool { return t.withTimeZone }
func (t Type) ElemNullable() bool { return t.elemNullable }
func (t Type) Raw() string { return t.raw }
func (t Type) IsValid() bool { return t.kind != KindInvalid }

// Elem returns the element type of a list, or the zero Type.
func (t Type) Elem() Type {
	if t.elem == nil {
		return Type{}
	}
	return *t.elem
}

func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindDecimal:
		return t.precision == o.precision && t.scale == o.scale
	case KindChar, KindVarChar:
		return t.length == o.length
	case KindTimestamp:
		return t.withTimeZone == o.withTimeZone
	case KindList:
		return t.elemNullable == o.elemNullable && t.Elem().Equal(o.Elem())
	case KindExternal:
		return t.raw == o.raw
	}
	return true
}

func (t Type) String() string {
	switch t.kind {
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.precision, t.scale)
	case KindChar, KindVarChar:
		return fmt.Sprintf("%s(%d)", t.kind, t.length)
	case KindTimestamp:
		if t.withTimeZone {
			return "timestamp_tz"
		}
		return "timestamp"
	case KindList:
		if t.elemNullable {
			return "list<" + t.Elem().String() + ">"
		}
		return "list<" + t.Elem().String() + " not null>"
	case KindExternal:
		return "external(" + t.raw + ")"
	}
	return t.kind.String()
}

func (t Type) MarshalJSON() ([]byte, error) {
	if t.kind == KindInvalid {
		return nil, caterrors.ErrInvalidType.Msg("cannot encode an unset type")
	}
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return caterrors.ErrInvalidType.MsgErr("type must be a string", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
