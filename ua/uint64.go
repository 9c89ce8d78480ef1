package ua

// UInt64ToWords splits v into the [high, low] 32-bit word pair used on the wire.
func UInt64ToWords(v uint64) [2]uint32 {
	return [2]uint32{uint32(v >> 32), uint32(v)}
}

// UInt64FromWords joins a [high, low] 32-bit word pair into a uint64.
func UInt64FromWords(words [2]uint32) uint64 {
	return uint64(words[0])<<32 | uint64(words[1])
}
