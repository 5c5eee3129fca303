package datatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/metacatalog/internal/catalogsrv/caterrors"
)

func TestConstructors(t *testing.T) {
	_, err := Decimal(0, 0)
	assert.ErrorIs(t, err, caterrors.ErrInvalidArgument)
	_, err = Decimal(39, 0)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
	_, err = Decimal(10, 11)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
	d, err := Decimal(38, 38)
	require.NoError(t, err)
	assert.Equal(t, 38, d.Scale())

	_, err = VarChar(0)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
	_, err = Char(-1)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
	_, err = List(Type{}, true)
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
	_, err = External("")
	assert.ErrorIs(t, err, caterrors.ErrInvalidType)
}

func TestEqual(t *testing.T) {
	assert.True(t, Must(Decimal(10, 2)).Equal(Must(Decimal(10, 2))))
	assert.False(t, Must(Decimal(10, 2)).Equal(Must(Decimal(10, 3))))
	assert.False(t, Timestamp(true).Equal(Timestamp(false)))
	assert.False(t, Must(Char(3)).Equal(Must(VarChar(3))))
	assert.True(t, Must(List(Integer(), false)).Equal(Must(List(Integer(), false))))
	assert.False(t, Must(List(Integer(), false)).Equal(Must(List(Integer(), true))))
	assert.False(t, Must(List(Integer(), true)).Equal(Must(List(Long(), true))))
	assert.True(t, Must(External("money")).Equal(Must(External("money"))))
}

func TestTextForm(t *testing.T) {
	types := []Type{
		Boolean(), Short(), Integer(), Long(), Float(), Double(), String(),
		Date(), Time(), Timestamp(false), Timestamp(true), Binary(),
		Must(Decimal(12, 4)), Must(Char(8)), Must(VarChar(255)),
		Must(List(Integer(), false)),
		Must(List(Must(List(Must(Decimal(5, 1)), true)), true)),
		Must(External("Money")),
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			parsed, err := Parse(typ.String())
			require.NoError(t, err)
			assert.True(t, typ.Equal(parsed), "parsed %s", parsed)

			b, jerr := json.Marshal(typ)
			require.NoError(t, jerr)
			var back Type
			require.NoError(t, json.Unmarshal(b, &back))
			assert.True(t, typ.Equal(back))
		})
	}
	assert.Equal(t, "list<integer not null>", Must(List(Integer(), false)).String())
	assert.Equal(t, "external(Money)", Must(External("Money")).String())

	for _, bad := range []string{"", "decimal(10)", "varchar", "integer(4)", "tinyint", "decimal(a,b)"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, caterrors.ErrInvalidType, bad)
	}
}
