package datapack

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
)

// FieldKind width and signedness of a packed field
type FieldKind string

const (
	KindU8  FieldKind = "u8"
	KindU16 FieldKind = "u16"
	KindU32 FieldKind = "u32"
	KindU64 FieldKind = "u64"
	KindI8  FieldKind = "i8"
	KindI16 FieldKind = "i16"
	KindI32 FieldKind = "i32"
	KindI64 FieldKind = "i64"
)

// Size field width in bytes, 0 for unknown kinds
func (k FieldKind) Size() int {
	switch k {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32:
		return 4
	case KindU64, KindI64:
		return 8
	}
	return 0
}

// Field named field of a packed record
type Field struct {
	Name string    `yaml:"name" mapstructure:"name"`
	Kind FieldKind `yaml:"kind" mapstructure:"kind"`
}

// Schema ordered list of fields
type Schema []Field

// Size total packed size of a record
func (s Schema) Size() int {
	var n int
	for _, f := range s {
		n += f.Kind.Size()
	}
	return n
}

// Validate checks field names and kinds
func (s Schema) Validate() error {
	if len(s) == 0 {
		return entity.ErrBadParam
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" || f.Kind.Size() == 0 {
			return errors.Wrapf(entity.ErrBadParam, "field %q of kind %q", f.Name, f.Kind)
		}
		if _, ok := seen[f.Name]; ok {
			return errors.Wrapf(entity.ErrBadParam, "duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Unpack reads one record as signed values keyed by field name
func (s Schema) Unpack(data []byte, e Endian) (map[string]int64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	u, err := NewUnpacker(data, e)
	if err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(s))
	for _, f := range s {
		var v int64
		switch f.Kind {
		case KindU8, KindI8:
			x, err := u.U8()
			if err != nil {
				return nil, err
			}
			v = int64(x)
			if f.Kind == KindI8 {
				v = int64(int8(x))
			}
		case KindU16, KindI16:
			x, err := u.U16()
			if err != nil {
				return nil, err
			}
			v = int64(x)
			if f.Kind == KindI16 {
				v = int64(int16(x))
			}
		case KindU32, KindI32:
			x, err := u.U32()
			if err != nil {
				return nil, err
			}
			v = int64(x)
			if f.Kind == KindI32 {
				v = int64(int32(x))
			}
		case KindU64, KindI64:
			x, err := u.U64()
			if err != nil {
				return nil, err
			}
			v = int64(x)
		}
		values[f.Name] = v
	}

	return values, nil
}

// Pack writes one record, missing values are packed as zero
func (s Schema) Pack(values map[string]int64, e Endian) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	p, err := NewPacker(make([]byte, s.Size()), e)
	if err != nil {
		return nil, err
	}

	for _, f := range s {
		v := values[f.Name]
		switch f.Kind.Size() {
		case 1:
			err = p.PutU8(uint8(v))
		case 2:
			err = p.PutU16(uint16(v))
		case 4:
			err = p.PutU32(uint32(v))
		case 8:
			err = p.PutU64(uint64(v))
		}
		if err != nil {
			return nil, err
		}
	}

	return p.Bytes(), nil
}

// Decode unpacks one record into the struct pointed by out
func (s Schema) Decode(data []byte, e Endian, out interface{}) error {
	values, err := s.Unpack(data, e)
	if err != nil {
		return err
	}
	if err := mapstructure.Decode(values, out); err != nil {
		return errors.Wrap(err, "failed to decode record")
	}
	return nil
}
