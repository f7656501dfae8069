package zobrist

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"
)

func allHashers(wordCount int) map[string]Hasher {
	out := map[string]Hasher{}
	for _, mode := range []string{ModeXOR, ModeZobrist, ModeXXHash} {
		h, err := New(mode)
		if err != nil {
			panic(err)
		}
		h.Initialize(wordCount)
		out[mode] = h
	}
	return out
}

func randomWords(n int) []uint32 {
	w := make([]uint32, n)
	for i := range w {
		w[i] = uint32(frand.Uint64n(1 << 32))
	}
	return w
}

func TestEqualVectorsHashEqual(t *testing.T) {
	is := is.New(t)
	for _, h := range allHashers(6) {
		a := randomWords(6)
		b := append([]uint32(nil), a...)
		is.Equal(h.Hash(a), h.Hash(b))
	}
}

func TestSingleWordChangeUsuallyDiffers(t *testing.T) {
	is := is.New(t)
	for _, h := range allHashers(4) {
		collisions := 0
		for i := 0; i < 1000; i++ {
			a := randomWords(4)
			b := append([]uint32(nil), a...)
			b[i%4] ^= 1 << (i % 32)
			if h.Hash(a) == h.Hash(b) {
				collisions++
			}
		}
		is.True(collisions < 5)
	}
}

func TestXORIgnoresOrder(t *testing.T) {
	is := is.New(t)
	a := []uint32{1, 2, 3}
	b := []uint32{3, 1, 2}
	is.Equal(XOR{}.Hash(a), XOR{}.Hash(b))

	z := &Zobrist{}
	z.Initialize(3)
	// tabulation keys are per word index
	is.True(z.Hash(a) != z.Hash(b))
}

func TestIncrementalUpdate(t *testing.T) {
	is := is.New(t)
	for mode, h := range allHashers(5) {
		u, ok := h.(Updater)
		if !ok {
			is.Equal(mode, ModeXXHash)
			continue
		}
		a := randomWords(5)
		key := h.Hash(a)
		old := a[3]
		a[3] = old ^ 0xf0f0
		is.Equal(u.Update(key, 3, old, a[3]), h.Hash(a))
	}
}

func TestZobristGrowKeepsKeys(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(2)
	a := []uint32{77, 99}
	before := z.Hash(a)
	z.Initialize(8)
	is.Equal(z.Hash(a), before)
}

func TestUnknownMode(t *testing.T) {
	is := is.New(t)
	_, err := New("sha256")
	is.True(errors.Is(err, ErrUnknownMode))
}
