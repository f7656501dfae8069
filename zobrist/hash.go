package zobrist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"lukechampine.com/frand"
)

// Hasher hashes a packed rail state vector. Equal vectors must hash equal;
// distinct vectors may collide, since callers always fall back to a
// word-by-word comparison.
type Hasher interface {
	// Initialize prepares the hasher for vectors of up to wordCount words.
	Initialize(wordCount int)
	Hash(words []uint32) uint32
}

// Updater is implemented by hashers that can fold a single word change into
// an existing hash without rehashing the whole vector.
type Updater interface {
	Update(key uint32, index int, oldWord, newWord uint32) uint32
}

const (
	ModeXOR     = "xor"
	ModeZobrist = "zobrist"
	ModeXXHash  = "xxhash"
)

var ErrUnknownMode = errors.New("unknown hash mode")

func New(mode string) (Hasher, error) {
	switch strings.ToLower(mode) {
	case "", ModeXOR:
		return XOR{}, nil
	case ModeZobrist:
		return &Zobrist{}, nil
	case ModeXXHash:
		return &XXHash{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// XOR folds all words together. It ignores word order, so vectors that are
// permutations of each other collide.
type XOR struct{}

func (XOR) Initialize(int) {}

func (XOR) Hash(words []uint32) uint32 {
	key := uint32(0)
	for _, w := range words {
		key ^= w
	}
	return key
}

func (XOR) Update(key uint32, _ int, oldWord, newWord uint32) uint32 {
	return key ^ oldWord ^ newWord
}

const bytesPerWord = 4

// Zobrist is tabulation hashing: one random key per (word, byte position,
// byte value).
// https://en.wikipedia.org/wiki/Tabulation_hashing
type Zobrist struct {
	table [][bytesPerWord][256]uint32
}

func (z *Zobrist) Initialize(wordCount int) {
	if wordCount <= len(z.table) {
		return
	}
	grown := make([][bytesPerWord][256]uint32, wordCount)
	copy(grown, z.table)
	for i := len(z.table); i < wordCount; i++ {
		for b := 0; b < bytesPerWord; b++ {
			for v := 0; v < 256; v++ {
				grown[i][b][v] = uint32(frand.Uint64n(1<<32-1)) + 1
			}
		}
	}
	z.table = grown
}

func (z *Zobrist) word(index int, w uint32) uint32 {
	t := &z.table[index]
	return t[0][w&0xff] ^ t[1][(w>>8)&0xff] ^ t[2][(w>>16)&0xff] ^ t[3][w>>24]
}

func (z *Zobrist) Hash(words []uint32) uint32 {
	key := uint32(0)
	for i, w := range words {
		key ^= z.word(i, w)
	}
	return key
}

func (z *Zobrist) Update(key uint32, index int, oldWord, newWord uint32) uint32 {
	return key ^ z.word(index, oldWord) ^ z.word(index, newWord)
}

// XXHash runs xxhash over the little-endian bytes of the vector and folds
// the 64-bit digest down to 32 bits. Not safe for concurrent use.
type XXHash struct {
	buf []byte
}

func (x *XXHash) Initialize(wordCount int) {
	if cap(x.buf) < wordCount*bytesPerWord {
		x.buf = make([]byte, 0, wordCount*bytesPerWord)
	}
}

func (x *XXHash) Hash(words []uint32) uint32 {
	x.buf = x.buf[:0]
	for _, w := range words {
		x.buf = binary.LittleEndian.AppendUint32(x.buf, w)
	}
	h := xxhash.Sum64(x.buf)
	return uint32(h ^ (h >> 32))
}
