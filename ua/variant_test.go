package ua

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariant_TypedAccessors(t *testing.T) {
	require := require.New(t)

	b, ok := NewByteVariant(3).Byte()
	require.True(ok)
	require.Equal(byte(3), b)

	_, ok = NewUInt32Variant(3).Byte()
	require.False(ok)

	i32, ok := NewInt32Variant(-1).Int32()
	require.True(ok)
	require.Equal(int32(-1), i32)

	u32, ok := NewUInt32Variant(42).UInt32()
	require.True(ok)
	require.Equal(uint32(42), u32)

	_, ok = Variant{DataType: TypeUInt32, Value: 42}.UInt32()
	require.False(ok, "untyped int must not be accepted as UInt32")

	s, ok := NewStringVariant("text/plain").StringValue()
	require.True(ok)
	require.Equal("text/plain", s)

	bs, ok := NewByteStringVariant([]byte("hello")).ByteString()
	require.True(ok)
	require.Equal([]byte("hello"), bs)

	bs, ok = Variant{DataType: TypeByteString}.ByteString()
	require.True(ok)
	require.Empty(bs)
}

func TestVariant_UInt64WirePair(t *testing.T) {
	require := require.New(t)

	tests := []uint64{0, 1, math.MaxUint32, math.MaxUint32 + 1, 1<<40 + 7, math.MaxUint64}
	for _, v := range tests {
		words := UInt64ToWords(v)
		require.Equal(v, UInt64FromWords(words))

		got, ok := Variant{DataType: TypeUInt64, Value: words}.UInt64()
		require.True(ok)
		require.Equal(v, got)

		got, ok = NewUInt64Variant(v).UInt64()
		require.True(ok)
		require.Equal(v, got)
	}

	require.Equal([2]uint32{1, 7}, UInt64ToWords(1<<32+7))
}

func TestDataValue_HasValue(t *testing.T) {
	require := require.New(t)

	var dv *DataValue
	require.False(dv.HasValue())
	require.False((&DataValue{}).HasValue())
	require.False((&DataValue{Value: &Variant{}}).HasValue())

	dv = NewDataValue(NewInt32Variant(int32(ServerStateRunning)))
	require.True(dv.HasValue())
	require.True(dv.Status.IsGood())
}
