// Package railmask packs per-rail runtime state into shared 32-bit words.
//
// Each rail takes a 4-bit field: the low 3 bits hold its tile offset and
// the high bit holds its movement direction (0 for -1, 1 for +1). A field
// never straddles a word boundary.
package railmask

import (
	"fmt"

	"github.com/flickyourselfon/railhint/rail"
)

const (
	TileOffsetBitCount        = 3
	MovementDirectionBitCount = 1
	BitCount                  = TileOffsetBitCount + MovementDirectionBitCount

	BaseTileOffsetMask        uint32 = (1 << TileOffsetBitCount) - 1
	BaseMovementDirectionMask uint32 = ((1 << MovementDirectionBitCount) - 1) << TileOffsetBitCount
	BaseMask                  uint32 = BaseTileOffsetMask | BaseMovementDirectionMask

	WordBits = 32

	// AbsentByteIndex marks a connection that is not gated by any rail.
	AbsentByteIndex = -1

	MaxTileOffset = int8(BaseTileOffsetMask)
)

// Encode packs a direction and tile offset into an unshifted field value.
func Encode(movementDirection, tileOffset int8) uint32 {
	dirBit := uint32((movementDirection+1)/2) << TileOffsetBitCount
	return dirBit | (uint32(tileOffset) & BaseTileOffsetMask)
}

// Decode unpacks an unshifted field value.
func Decode(v uint32) (movementDirection, tileOffset int8) {
	tileOffset = int8(v & BaseTileOffsetMask)
	movementDirection = -1
	if v&BaseMovementDirectionMask != 0 {
		movementDirection = 1
	}
	return movementDirection, tileOffset
}

// ByteMaskData says where one rail's field lives within a state vector.
type ByteMaskData struct {
	RailID      int16
	ByteIndex   int
	BitShift    uint
	Rail        *rail.Rail
	InverseMask uint32
}

func NewByteMaskData(r *rail.Rail, byteIndex int, bitShift uint) ByteMaskData {
	return ByteMaskData{
		RailID:      r.ID,
		ByteIndex:   byteIndex,
		BitShift:    bitShift,
		Rail:        r,
		InverseMask: ^(BaseMask << bitShift),
	}
}

// TileOffsetMask is the shifted mask of the rail's tile offset bits. A
// connection gated by this rail is open iff these bits are all zero.
func (b *ByteMaskData) TileOffsetMask() uint32 {
	return BaseTileOffsetMask << b.BitShift
}

// Read returns the unshifted field value for this rail.
func (b *ByteMaskData) Read(words []uint32) uint32 {
	return (words[b.ByteIndex] >> b.BitShift) & BaseMask
}

// Write stores an unshifted field value for this rail.
func (b *ByteMaskData) Write(words []uint32, v uint32) {
	words[b.ByteIndex] = (words[b.ByteIndex] & b.InverseMask) | ((v & BaseMask) << b.BitShift)
}

func (b *ByteMaskData) Get(words []uint32) (movementDirection, tileOffset int8) {
	return Decode(b.Read(words))
}

func (b *ByteMaskData) Set(words []uint32, movementDirection, tileOffset int8) {
	b.Write(words, Encode(movementDirection, tileOffset))
}

func (b *ByteMaskData) String() string {
	return fmt.Sprintf("rail %d @ word %d shift %d", b.RailID, b.ByteIndex, b.BitShift)
}

// Blocked reports whether a gate over (byteIndex, tileOffsetMask) is closed
// in words. Ungated connections are never blocked.
func Blocked(words []uint32, byteIndex int, tileOffsetMask uint32) bool {
	if byteIndex == AbsentByteIndex {
		return false
	}
	return words[byteIndex]&tileOffsetMask != 0
}

// Allocator hands out bit positions within a level's state vector.
type Allocator struct {
	bits int
}

// Track reserves nBits and returns their word index and shift. If the
// field would overflow the current word it starts at the next one.
func (a *Allocator) Track(nBits int) (byteIndex int, bitShift uint) {
	if nBits <= 0 || nBits > WordBits {
		panic(fmt.Sprintf("railmask: cannot track %d bits", nBits))
	}
	shift := a.bits % WordBits
	if shift+nBits > WordBits {
		a.bits += WordBits - shift
	}
	byteIndex = a.bits / WordBits
	bitShift = uint(a.bits % WordBits)
	a.bits += nBits
	return byteIndex, bitShift
}

func (a *Allocator) BitsTracked() int {
	return a.bits
}

// WordCount is the length of a state vector holding every tracked field.
func (a *Allocator) WordCount() int {
	return (a.bits + WordBits - 1) / WordBits
}
