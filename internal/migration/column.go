package migration

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/Limetric/simschema/internal/simtypes"
)

// Type is the semantic type of a logical column.
type Type int

const (
	Invalid Type = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float64
	String
	Bytes
	Date
	UUID
	ParcelID
	UGUI
	UGUIWithName
	UGI
	Vector3
	Vector4
	Quaternion
	GridVector
	Color
	ColorAlpha
	WLVector2
	WLVector4
	// Enum types are integer-backed enumerations of the given width.
	Enum8
	Enum16
	Enum32
	Enum64
)

var typeNames = [...]string{
	Invalid:      "invalid",
	Bool:         "bool",
	Int8:         "int8",
	Uint8:        "uint8",
	Int16:        "int16",
	Uint16:       "uint16",
	Int32:        "int32",
	Uint32:       "uint32",
	Int64:        "int64",
	Uint64:       "uint64",
	Float64:      "float64",
	String:       "string",
	Bytes:        "bytes",
	Date:         "date",
	UUID:         "uuid",
	ParcelID:     "parcelid",
	UGUI:         "ugui",
	UGUIWithName: "uguiwithname",
	UGI:          "ugi",
	Vector3:      "vector3",
	Vector4:      "vector4",
	Quaternion:   "quaternion",
	GridVector:   "gridvector",
	Color:        "color",
	ColorAlpha:   "coloralpha",
	WLVector2:    "wlvector2",
	WLVector4:    "wlvector4",
	Enum8:        "enum8",
	Enum16:       "enum16",
	Enum32:       "enum32",
	Enum64:       "enum64",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Component is one physical column of an expanded type.
type Component struct {
	Suffix string
	Type   Type
}

// Expand returns the physical components of t in storage order. Scalar
// types expand to one component with an empty suffix; unsupported types
// expand to nil. Creation, alteration and removal all enumerate physical
// columns through this function.
func Expand(t Type) []Component {
	switch t {
	case Vector3:
		return []Component{{"X", Float64}, {"Y", Float64}, {"Z", Float64}}
	case Vector4, Quaternion:
		return []Component{{"X", Float64}, {"Y", Float64}, {"Z", Float64}, {"W", Float64}}
	case GridVector:
		return []Component{{"X", Uint32}, {"Y", Uint32}}
	case WLVector2:
		return []Component{{"X", Float64}, {"Y", Float64}}
	case WLVector4:
		return []Component{{"Red", Float64}, {"Green", Float64}, {"Blue", Float64}, {"Value", Float64}}
	case Color:
		return []Component{{"Red", Float64}, {"Green", Float64}, {"Blue", Float64}}
	case ColorAlpha:
		return []Component{{"Red", Float64}, {"Green", Float64}, {"Blue", Float64}, {"Alpha", Float64}}
	case Bool, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float64,
		String, Bytes, Date, UUID, ParcelID, UGUI, UGUIWithName, UGI,
		Enum8, Enum16, Enum32, Enum64:
		return []Component{{"", t}}
	}
	return nil
}

// Column describes a logical column. A column is NOT NULL unless Nullable
// is set. Default only applies to NOT NULL columns and must have the Go
// type matching Type; UUID defaults are also accepted for UGUI,
// UGUIWithName and UGI columns.
type Column struct {
	Name        string
	Type        Type
	Cardinality int
	Nullable    bool
	Long        bool
	Fixed       bool
	Default     any
}

// PhysicalColumn is one database column produced by expanding a Column.
type PhysicalColumn struct {
	Name        string
	Type        Type
	Cardinality int
	Nullable    bool
	Long        bool
	Fixed       bool
	// Default holds the stored form of the component default, or nil.
	Default any
	// DefaultName is the name of the default constraint on engines that
	// manage defaults as named constraints.
	DefaultName string
}

// DefaultConstraintName returns the deterministic name of the default
// constraint for a physical column.
func DefaultConstraintName(table, column string) string {
	return "DF_" + table + "_" + column
}

// Physical expands c into its physical columns for table.
func (c Column) Physical(table string) ([]PhysicalColumn, error) {
	comps := Expand(c.Type)
	if comps == nil {
		return nil, fmt.Errorf("column %s: %w: %v", c.Name, ErrUnsupportedType, c.Type)
	}
	var defaults []any
	if c.Default != nil && !c.Nullable {
		if !defaultMatches(c.Type, c.Default) {
			return nil, fmt.Errorf("column %s: %w: %T for %v", c.Name, ErrDefaultMismatch, c.Default, c.Type)
		}
		vals, err := StoredValues(c.Default)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		if len(vals) != len(comps) {
			return nil, fmt.Errorf("column %s: %w: %d values for %d columns", c.Name, ErrDefaultMismatch, len(vals), len(comps))
		}
		defaults = vals
	}
	out := make([]PhysicalColumn, len(comps))
	for i, comp := range comps {
		name := c.Name + comp.Suffix
		p := PhysicalColumn{
			Name:        name,
			Type:        comp.Type,
			Nullable:    c.Nullable,
			DefaultName: DefaultConstraintName(table, name),
		}
		if comp.Suffix == "" {
			p.Cardinality = c.Cardinality
			p.Long = c.Long
			p.Fixed = c.Fixed
		}
		if defaults != nil {
			p.Default = defaults[i]
		}
		out[i] = p
	}
	return out, nil
}

// PhysicalNames returns the physical column names of c.
func (c Column) PhysicalNames() []string {
	comps := Expand(c.Type)
	names := make([]string, len(comps))
	for i, comp := range comps {
		names[i] = c.Name + comp.Suffix
	}
	return names
}

func defaultMatches(t Type, v any) bool {
	var ok bool
	switch t {
	case Bool:
		_, ok = v.(bool)
	case Int8:
		_, ok = v.(int8)
	case Uint8:
		_, ok = v.(uint8)
	case Int16:
		_, ok = v.(int16)
	case Uint16:
		_, ok = v.(uint16)
	case Int32:
		_, ok = v.(int32)
	case Uint32:
		_, ok = v.(uint32)
	case Int64:
		_, ok = v.(int64)
	case Uint64:
		_, ok = v.(uint64)
	case Float64:
		_, ok = v.(float64)
	case String:
		_, ok = v.(string)
	case Bytes:
		_, ok = v.([]byte)
	case Date:
		_, ok = v.(simtypes.Date)
	case UUID:
		_, ok = v.(uuid.UUID)
	case ParcelID:
		_, ok = v.(simtypes.ParcelID)
	case UGUI:
		switch v.(type) {
		case simtypes.UGUI, uuid.UUID:
			ok = true
		}
	case UGUIWithName:
		switch v.(type) {
		case simtypes.UGUIWithName, uuid.UUID:
			ok = true
		}
	case UGI:
		switch v.(type) {
		case simtypes.UGI, uuid.UUID:
			ok = true
		}
	case Vector3:
		_, ok = v.(simtypes.Vector3)
	case Vector4:
		_, ok = v.(simtypes.Vector4)
	case Quaternion:
		_, ok = v.(simtypes.Quaternion)
	case GridVector:
		_, ok = v.(simtypes.GridVector)
	case Color:
		_, ok = v.(simtypes.Color)
	case ColorAlpha:
		_, ok = v.(simtypes.ColorAlpha)
	case WLVector2:
		_, ok = v.(simtypes.WLVector2)
	case WLVector4:
		_, ok = v.(simtypes.WLVector4)
	case Enum8:
		ok = isEnum(v, 1)
	case Enum16:
		ok = isEnum(v, 2)
	case Enum32:
		ok = isEnum(v, 4)
	case Enum64:
		ok = isEnum(v, 8)
	}
	return ok
}

// isEnum reports whether v is a named integer type of the given byte width.
func isEnum(v any, size uintptr) bool {
	rt := reflect.TypeOf(v)
	if rt == nil || rt.PkgPath() == "" {
		return false
	}
	switch rt.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rt.Size() == size
	}
	return false
}

// TypeOfValue returns the column type a Go value is stored as.
func TypeOfValue(v any) (Type, bool) {
	switch v.(type) {
	case bool:
		return Bool, true
	case int8:
		return Int8, true
	case uint8:
		return Uint8, true
	case int16:
		return Int16, true
	case uint16:
		return Uint16, true
	case int32:
		return Int32, true
	case uint32:
		return Uint32, true
	case int64, int:
		return Int64, true
	case uint64, uint:
		return Uint64, true
	case float64, float32:
		return Float64, true
	case string:
		return String, true
	case []byte:
		return Bytes, true
	case simtypes.Date:
		return Date, true
	case uuid.UUID:
		return UUID, true
	case simtypes.ParcelID:
		return ParcelID, true
	case simtypes.UGUI:
		return UGUI, true
	case simtypes.UGUIWithName:
		return UGUIWithName, true
	case simtypes.UGI:
		return UGI, true
	case simtypes.Vector3:
		return Vector3, true
	case simtypes.Vector4:
		return Vector4, true
	case simtypes.Quaternion:
		return Quaternion, true
	case simtypes.GridVector:
		return GridVector, true
	case simtypes.Color:
		return Color, true
	case simtypes.ColorAlpha:
		return ColorAlpha, true
	case simtypes.WLVector2:
		return WLVector2, true
	case simtypes.WLVector4:
		return WLVector4, true
	}
	switch {
	case isEnum(v, 1):
		return Enum8, true
	case isEnum(v, 2):
		return Enum16, true
	case isEnum(v, 4):
		return Enum32, true
	case isEnum(v, 8):
		return Enum64, true
	}
	return Invalid, false
}

// StoredValues converts v into the values bound or rendered for its
// physical columns, one per component. Composite values are split in
// Expand order; identifiers become their canonical text; dates become
// Unix seconds; enums become their underlying integer. Unsigned values
// stay uint64 until Bind maps them onto an engine.
func StoredValues(v any) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return []any{nil}, nil
	case bool, int64, uint64, float64, string, []byte:
		return []any{v}, nil
	case int:
		return []any{int64(v)}, nil
	case int8:
		return []any{int64(v)}, nil
	case int16:
		return []any{int64(v)}, nil
	case int32:
		return []any{int64(v)}, nil
	case uint:
		return []any{uint64(v)}, nil
	case uint8:
		return []any{uint64(v)}, nil
	case uint16:
		return []any{uint64(v)}, nil
	case uint32:
		return []any{uint64(v)}, nil
	case float32:
		return []any{float64(v)}, nil
	case simtypes.Date:
		return []any{v.Unix()}, nil
	case uuid.UUID:
		return []any{v.String()}, nil
	case simtypes.ParcelID:
		return []any{v.String()}, nil
	case simtypes.UGUI:
		return []any{v.String()}, nil
	case simtypes.UGUIWithName:
		return []any{v.String()}, nil
	case simtypes.UGI:
		return []any{v.String()}, nil
	case simtypes.Vector3:
		return []any{v.X, v.Y, v.Z}, nil
	case simtypes.Vector4:
		return []any{v.X, v.Y, v.Z, v.W}, nil
	case simtypes.Quaternion:
		return []any{v.X, v.Y, v.Z, v.W}, nil
	case simtypes.GridVector:
		return []any{uint64(v.X), uint64(v.Y)}, nil
	case simtypes.WLVector2:
		return []any{v.X, v.Y}, nil
	case simtypes.WLVector4:
		return []any{v.X, v.Y, v.Z, v.W}, nil
	case simtypes.Color:
		return []any{v.R, v.G, v.B}, nil
	case simtypes.ColorAlpha:
		return []any{v.R, v.G, v.B, v.A}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []any{rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []any{rv.Uint()}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// UnsignedStorage is how an engine holds unsigned integer columns.
type UnsignedStorage int

const (
	// UnsignedNative engines have unsigned column types.
	UnsignedNative UnsignedStorage = iota
	// UnsignedWiden engines store unsigned values in a wider signed
	// column; 64-bit values keep their bit pattern.
	UnsignedWiden
	// UnsignedSameWidth engines store unsigned values in a signed column
	// of the same width, keeping the bit pattern. 8-bit values widen.
	UnsignedSameWidth
)

// Bind maps a stored value of a physical column of type t onto an engine
// holding unsigned integers as s. Values other than uint64 pass through.
// Enums always keep the bit pattern of their width, since every engine
// stores them in signed columns.
func Bind(s UnsignedStorage, t Type, v any) any {
	u, ok := v.(uint64)
	if !ok {
		return v
	}
	switch t {
	case Enum8:
		return int64(int8(u))
	case Enum16:
		return int64(int16(u))
	case Enum32:
		return int64(int32(u))
	case Enum64:
		return int64(u)
	}
	switch s {
	case UnsignedNative:
		return u
	case UnsignedSameWidth:
		switch t {
		case Uint16:
			return int64(int16(u))
		case Uint32:
			return int64(int32(u))
		}
	}
	return int64(u)
}
