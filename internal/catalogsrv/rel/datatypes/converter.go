package datatypes

import (
	"regexp"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// NativeType describes a column type as reported by a backend: a lowercase
// type name plus the size and scale side channel.
type NativeType struct {
	Name  string
	Size  *int
	Scale *int
}

func Native(name string) NativeType {
	return NativeType{Name: name}
}

func NativeWithSize(name string, size int) NativeType {
	return NativeType{Name: name, Size: &size}
}

func NativeWithScale(name string, size, scale int) NativeType {
	return NativeType{Name: name, Size: &size, Scale: &scale}
}

// Converter maps between logical types and the type vocabulary of one backend.
// For every type t the backend supports, ToLogical of the native type created
// by FromLogical(t) yields a type equal to t.
type Converter interface {
	Backend() string
	ToLogical(native NativeType) (Type, apperrors.Error)
	FromLogical(t Type) (string, apperrors.Error)
}

// Unsupported is the error for a logical type the backend cannot represent.
func Unsupported(t Type, backend string) apperrors.Error {
	return caterrors.ErrUnsupportedType.Msgf("unsupported type %s for backend %s", t, backend)
}

// MissingParam is the error for a parameterized native type reported without
// its parameters.
func MissingParam(native NativeType, param, backend string) apperrors.Error {
	return caterrors.ErrInvalidType.Msgf("%s type %q is missing its %s", backend, native.Name, param)
}

// externalName is the grammar of native type names a backend may receive
// verbatim: a word sequence with optional size parameters and array markers.
var externalName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ .]*(\(\s*\d+(\s*,\s*\d+)?\s*\))?(\[\d*\])*$`)

// ExternalName returns the raw name of an External type for use in DDL. Names
// outside the native type name grammar are rejected.
func ExternalName(t Type, backend string) (string, apperrors.Error) {
	raw := t.Raw()
	if !externalName.MatchString(raw) {
		return "", caterrors.ErrInvalidType.Msgf("%q is not a valid %s type name", raw, backend)
	}
	return raw, nil
}
