package datapack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest33/edsp/business/entity"
)

func TestPackerInit(t *testing.T) {
	_, err := NewPacker(nil, LittleEndian)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
	_, err = NewPacker([]byte{}, LittleEndian)
	assert.ErrorIs(t, err, entity.ErrBadParam)

	_, err = NewUnpacker(nil, LittleEndian)
	assert.ErrorIs(t, err, entity.ErrBadPointer)
	_, err = NewUnpacker([]byte{}, LittleEndian)
	assert.ErrorIs(t, err, entity.ErrBadParam)
}

func TestPackerLayout(t *testing.T) {
	type testCase struct {
		endian Endian
		want   []byte
	}

	tests := map[string]testCase{
		"little": {
			endian: LittleEndian,
			want: []byte{0xAA, 0x02, 0x01, 0x06, 0x05, 0x04, 0x03,
				0x0E, 0x0D, 0x0C, 0x0B, 0x0A, 0x09, 0x08, 0x07, 0xF0, 0xF1},
		},
		"big": {
			endian: BigEndian,
			want: []byte{0xAA, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06,
				0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0xF0, 0xF1},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := NewPacker(make([]byte, 32), tc.endian)
			require.NoError(t, err)

			require.NoError(t, p.PutU8(0xAA))
			require.NoError(t, p.PutU16(0x0102))
			require.NoError(t, p.PutU32(0x03040506))
			require.NoError(t, p.PutU64(0x0708090A0B0C0D0E))
			require.NoError(t, p.PutBytes([]byte{0xF0, 0xF1}))

			assert.Equal(t, tc.want, p.Bytes())
			assert.Equal(t, len(tc.want), p.Len())

			u, err := NewUnpacker(p.Bytes(), tc.endian)
			require.NoError(t, err)

			v8, err := u.U8()
			require.NoError(t, err)
			assert.Equal(t, uint8(0xAA), v8)
			v16, err := u.U16()
			require.NoError(t, err)
			assert.Equal(t, uint16(0x0102), v16)
			v32, err := u.U32()
			require.NoError(t, err)
			assert.Equal(t, uint32(0x03040506), v32)
			v64, err := u.U64()
			require.NoError(t, err)
			assert.Equal(t, uint64(0x0708090A0B0C0D0E), v64)
			raw, err := u.Bytes(2)
			require.NoError(t, err)
			assert.Equal(t, []byte{0xF0, 0xF1}, raw)
			assert.Zero(t, u.Remaining())

			_, err = u.U8()
			assert.ErrorIs(t, err, entity.ErrNoData)

			u.Reset()
			assert.Equal(t, len(tc.want), u.Remaining())
		})
	}
}

func TestPackerOutOfMemory(t *testing.T) {
	p, err := NewPacker(make([]byte, 3), LittleEndian)
	require.NoError(t, err)

	require.NoError(t, p.PutU16(1))
	assert.ErrorIs(t, p.PutU16(2), entity.ErrOutOfMemory)
	assert.ErrorIs(t, p.PutU32(2), entity.ErrOutOfMemory)
	assert.Equal(t, 2, p.Len())
	require.NoError(t, p.PutU8(3))
	assert.ErrorIs(t, p.PutU8(4), entity.ErrOutOfMemory)

	assert.ErrorIs(t, p.PutBytes(nil), entity.ErrBadPointer)
	assert.ErrorIs(t, p.PutBytes([]byte{}), entity.ErrBadParam)

	p.Reset()
	assert.Zero(t, p.Len())
	require.NoError(t, p.PutBytes([]byte{1, 2, 3}))

	p.n = 10
	assert.ErrorIs(t, p.PutU8(1), entity.ErrCorruptContext)
}

func TestSchema(t *testing.T) {
	schema := Schema{
		{Name: "seq", Kind: KindU16},
		{Name: "temperature", Kind: KindI16},
		{Name: "pressure", Kind: KindU32},
		{Name: "offset", Kind: KindI8},
	}
	require.NoError(t, schema.Validate())
	assert.Equal(t, 9, schema.Size())

	values := map[string]int64{"seq": 7, "temperature": -215, "pressure": 101325, "offset": -3}
	data, err := schema.Pack(values, BigEndian)
	require.NoError(t, err)
	assert.Len(t, data, 9)

	got, err := schema.Unpack(data, BigEndian)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	var record struct {
		Seq         uint16
		Temperature int16
		Pressure    uint32
		Offset      int `mapstructure:"offset"`
	}
	require.NoError(t, schema.Decode(data, BigEndian, &record))
	assert.Equal(t, uint16(7), record.Seq)
	assert.Equal(t, int16(-215), record.Temperature)
	assert.Equal(t, uint32(101325), record.Pressure)
	assert.Equal(t, -3, record.Offset)

	_, err = schema.Unpack(data[:5], BigEndian)
	assert.ErrorIs(t, err, entity.ErrNoData)
}

func TestSchemaValidate(t *testing.T) {
	type testCase struct {
		schema Schema
	}

	tests := map[string]testCase{
		"empty":        {schema: Schema{}},
		"unnamed":      {schema: Schema{{Kind: KindU8}}},
		"unknown-kind": {schema: Schema{{Name: "a", Kind: "f32"}}},
		"duplicate":    {schema: Schema{{Name: "a", Kind: KindU8}, {Name: "a", Kind: KindU16}}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tc.schema.Validate(), entity.ErrBadParam)
		})
	}
}

func TestParseEndian(t *testing.T) {
	assert.Equal(t, BigEndian, ParseEndian("big"))
	assert.Equal(t, BigEndian, ParseEndian("be"))
	assert.Equal(t, LittleEndian, ParseEndian("little"))
	assert.Equal(t, "big", BigEndian.String())
	assert.Equal(t, "little", LittleEndian.String())
}
