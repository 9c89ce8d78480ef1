package ua

import "time"

// DataType is the built-in type id of a Variant value.
type DataType uint8

// Built-in data types.
const (
	TypeNull       DataType = 0
	TypeBoolean    DataType = 1
	TypeSByte      DataType = 2
	TypeByte       DataType = 3
	TypeInt16      DataType = 4
	TypeUInt16     DataType = 5
	TypeInt32      DataType = 6
	TypeUInt32     DataType = 7
	TypeInt64      DataType = 8
	TypeUInt64     DataType = 9
	TypeFloat      DataType = 10
	TypeDouble     DataType = 11
	TypeString     DataType = 12
	TypeDateTime   DataType = 13
	TypeByteString DataType = 15
)

// MaxByteStringLength is the largest ByteString accepted by the binary stream codec.
const MaxByteStringLength = 16 * 1024 * 1024

// AttributeID identifies a node attribute.
type AttributeID uint32

// AttributeValue is the Value attribute of a variable node.
const AttributeValue AttributeID = 13

// ReadValueID describes one attribute to read.
type ReadValueID struct {
	NodeID      NodeID
	AttributeID AttributeID
}

// Variant is a value tagged with its built-in data type.
//
// A UInt64 variant may carry either a uint64 or the [2]uint32 high/low word pair received from the wire.
type Variant struct {
	DataType DataType
	Value    any
}

// NewByteVariant creates a Byte variant.
func NewByteVariant(v byte) Variant { return Variant{DataType: TypeByte, Value: v} }

// NewBooleanVariant creates a Boolean variant.
func NewBooleanVariant(v bool) Variant { return Variant{DataType: TypeBoolean, Value: v} }

// NewUInt16Variant creates a UInt16 variant.
func NewUInt16Variant(v uint16) Variant { return Variant{DataType: TypeUInt16, Value: v} }

// NewInt32Variant creates an Int32 variant.
func NewInt32Variant(v int32) Variant { return Variant{DataType: TypeInt32, Value: v} }

// NewUInt32Variant creates a UInt32 variant.
func NewUInt32Variant(v uint32) Variant { return Variant{DataType: TypeUInt32, Value: v} }

// NewUInt64Variant creates a UInt64 variant.
func NewUInt64Variant(v uint64) Variant { return Variant{DataType: TypeUInt64, Value: v} }

// NewStringVariant creates a String variant.
func NewStringVariant(v string) Variant { return Variant{DataType: TypeString, Value: v} }

// NewByteStringVariant creates a ByteString variant.
func NewByteStringVariant(v []byte) Variant { return Variant{DataType: TypeByteString, Value: v} }

// IsNull returns true if the variant holds no value.
func (v Variant) IsNull() bool {
	return v.DataType == TypeNull || v.Value == nil
}

// Byte returns the value of a Byte variant.
func (v Variant) Byte() (byte, bool) {
	if v.DataType != TypeByte {
		return 0, false
	}
	val, ok := v.Value.(byte)

	return val, ok
}

// Boolean returns the value of a Boolean variant.
func (v Variant) Boolean() (bool, bool) {
	if v.DataType != TypeBoolean {
		return false, false
	}
	val, ok := v.Value.(bool)

	return val, ok
}

// UInt16 returns the value of a UInt16 variant.
func (v Variant) UInt16() (uint16, bool) {
	if v.DataType != TypeUInt16 {
		return 0, false
	}
	val, ok := v.Value.(uint16)

	return val, ok
}

// Int32 returns the value of an Int32 variant.
func (v Variant) Int32() (int32, bool) {
	if v.DataType != TypeInt32 {
		return 0, false
	}
	val, ok := v.Value.(int32)

	return val, ok
}

// UInt32 returns the value of a UInt32 variant.
func (v Variant) UInt32() (uint32, bool) {
	if v.DataType != TypeUInt32 {
		return 0, false
	}
	val, ok := v.Value.(uint32)

	return val, ok
}

// UInt64 returns the value of a UInt64 variant. Both uint64 and the [2]uint32 wire pair are accepted.
func (v Variant) UInt64() (uint64, bool) {
	if v.DataType != TypeUInt64 {
		return 0, false
	}

	switch val := v.Value.(type) {
	case uint64:
		return val, true
	case [2]uint32:
		return UInt64FromWords(val), true
	default:
		return 0, false
	}
}

// StringValue returns the value of a String variant.
func (v Variant) StringValue() (string, bool) {
	if v.DataType != TypeString {
		return "", false
	}
	val, ok := v.Value.(string)

	return val, ok
}

// ByteString returns the value of a ByteString variant. A nil ByteString is valid.
func (v Variant) ByteString() ([]byte, bool) {
	if v.DataType != TypeByteString {
		return nil, false
	}
	if v.Value == nil {
		return nil, true
	}
	val, ok := v.Value.([]byte)

	return val, ok
}

// DataValue is a variant together with its status and source timestamp.
type DataValue struct {
	Value           *Variant
	Status          StatusCode
	SourceTimestamp time.Time
}

// NewDataValue creates a good DataValue with the given variant.
func NewDataValue(v Variant) *DataValue {
	return &DataValue{Value: &v, Status: Good, SourceTimestamp: time.Now()}
}

// HasValue returns true if the data value carries a non-null variant.
func (dv *DataValue) HasValue() bool {
	return dv != nil && dv.Value != nil && !dv.Value.IsNull()
}
