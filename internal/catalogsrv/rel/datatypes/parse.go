package datatypes

import (
	"strconv"
	"strings"

	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// Parse reads the text form produced by Type.String.
func Parse(s string) (Type, apperrors.Error) {
	in := strings.TrimSpace(s)
	lower := strings.ToLower(in)
	switch {
	case strings.HasPrefix(lower, "external(") && strings.HasSuffix(in, ")"):
		return External(in[len("external(") : len(in)-1])
	case strings.HasPrefix(lower, "list<") && strings.HasSuffix(in, ">"):
		inner := strings.TrimSpace(in[len("list<") : len(in)-1])
		nullable := true
		if l := strings.ToLower(inner); strings.HasSuffix(l, " not null") {
			nullable = false
			inner = strings.TrimSpace(inner[:len(inner)-len(" not null")])
		}
		elem, err := Parse(inner)
		if err != nil {
			return Type{}, err
		}
		return List(elem, nullable)
	}

	name, args, err := splitParams(lower)
	if err != nil {
		return Type{}, err
	}
	switch name {
	case "decimal":
		if len(args) != 2 {
			return Type{}, caterrors.ErrInvalidType.Msgf("decimal requires precision and scale: %q", s)
		}
		return Decimal(args[0], args[1])
	case "char", "varchar":
		if len(args) != 1 {
			return Type{}, caterrors.ErrInvalidType.Msgf("%s requires a length: %q", name, s)
		}
		if name == "char" {
			return Char(args[0])
		}
		return VarChar(args[0])
	}
	if len(args) > 0 {
		return Type{}, caterrors.ErrInvalidType.Msgf("type %q takes no parameters", name)
	}
	switch name {
	case "boolean":
		return Boolean(), nil
	case "short":
		return Short(), nil
	case "integer":
		return Integer(), nil
	case "long":
		return Long(), nil
	case "float":
		return Float(), nil
	case "double":
		return Double(), nil
	case "string":
		return String(), nil
	case "date":
		return Date(), nil
	case "time":
		return Time(), nil
	case "timestamp":
		return Timestamp(false), nil
	case "timestamp_tz":
		return Timestamp(true), nil
	case "binary":
		return Binary(), nil
	}
	return Type{}, caterrors.ErrInvalidType.Msgf("unknown type %q", s)
}

// splitParams splits "name(a,b)" into its name and integer arguments.
func splitParams(s string) (string, []int, apperrors.Error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return strings.TrimSpace(s), nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, caterrors.ErrInvalidType.Msgf("unbalanced parameters in %q", s)
	}
	name := strings.TrimSpace(s[:open])
	var args []int
	for _, a := range strings.Split(s[open+1:len(s)-1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return "", nil, caterrors.ErrInvalidType.MsgErr("invalid type parameter in "+strconv.Quote(s), err)
		}
		args = append(args, n)
	}
	return name, args, nil
}
