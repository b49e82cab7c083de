package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codecs = map[string]Codec{
	"little": LittleEndian{},
	"big":    BigEndian{},
}

func TestRoundTrip16(t *testing.T) {
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, 2)
			for v := uint32(0); v < 1<<16; v += 7 {
				c.Write16(buf, uint16(v))
				require.Equal(t, uint16(v), c.Read16(buf))
			}
			c.Write16(buf, 0xFFFF)
			require.Equal(t, uint16(0xFFFF), c.Read16(buf))
		})
	}
}

func TestRoundTrip32(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, 4)
			for i := 0; i < 10000; i++ {
				v := rnd.Uint32()
				c.Write32(buf, v)
				require.Equal(t, v, c.Read32(buf))
			}
		})
	}
}

func TestRoundTrip56(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, 7)
			for i := 0; i < 10000; i++ {
				v := rnd.Uint64() & 0x00FFFFFFFFFFFFFF
				c.Write56(buf, v)
				require.Equal(t, v, c.Read56(buf))
			}
		})
	}
}

func TestRoundTrip64(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, 8)
			for i := 0; i < 10000; i++ {
				v := rnd.Uint64()
				c.Write64(buf, v)
				require.Equal(t, v, c.Read64(buf))
			}
		})
	}
}

func TestRoundTripSCN(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, 8)
			fixed := []uint64{
				0, 1, 0xABCD, 0xFFFFFFFF,
				1<<47 - 1, 1 << 47, 1<<47 + 1,
				0x0123456789AB, 0x7123456789ABCDEF,
				1<<63 - 2,
			}
			for _, v := range fixed {
				c.WriteSCN(buf, SCN(v))
				require.Equal(t, SCN(v), c.ReadSCN(buf), "value 0x%x", v)
			}
			for i := 0; i < 10000; i++ {
				v := rnd.Uint64() >> 1 // [0, 2^63)
				if SCN(v) == ZeroSCN {
					continue
				}
				c.WriteSCN(buf, SCN(v))
				require.Equal(t, SCN(v), c.ReadSCN(buf), "value 0x%x", v)
			}
		})
	}
}

func TestReadSCNSentinel(t *testing.T) {
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			for _, tail := range [][2]byte{{0x00, 0x00}, {0x12, 0x34}, {0xFF, 0xFF}} {
				buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, tail[0], tail[1]}
				require.Equal(t, ZeroSCN, c.ReadSCN(buf))
				require.Equal(t, ZeroSCN, c.ReadSCNr(buf))
			}
		})
	}
}

func TestWriteSCNFormBoundary(t *testing.T) {
	buf := make([]byte, 8)

	le := LittleEndian{}
	le.WriteSCN(buf, 1<<47-1)
	assert.Zero(t, buf[5]&0x80, "short form must keep the escape bit clear")
	le.WriteSCN(buf, 1<<47)
	assert.NotZero(t, buf[5]&0x80, "extended form must set the escape bit")

	be := BigEndian{}
	be.WriteSCN(buf, 1<<47-1)
	assert.Zero(t, buf[0]&0x80)
	be.WriteSCN(buf, 1<<47)
	assert.NotZero(t, buf[0]&0x80)
}

func TestReadSCNrSkipsMiddleBytes(t *testing.T) {
	// The relative layout omits bits 32..47; whatever sits in the two
	// trailing bytes must not leak into the decoded value.
	buf := []byte{0x00, 0x80, 0x44, 0x33, 0x22, 0x11, 0xAA, 0xBB}
	got := LittleEndian{}.ReadSCNr(buf)
	require.Equal(t, SCN(0x11223344), got)

	buf = []byte{0x05, 0x06, 0x44, 0x33, 0x22, 0x11, 0xAA, 0xBB}
	got = LittleEndian{}.ReadSCNr(buf)
	require.Equal(t, SCN(0x0605_11223344), got)
}

func TestSelect(t *testing.T) {
	require.IsType(t, BigEndian{}, Select(true))
	require.IsType(t, LittleEndian{}, Select(false))
}

func TestFormat(t *testing.T) {
	s := SCN(0x0001_0000_0002)
	assert.Equal(t, "0x0001.00000002", s.Format48())
	assert.Equal(t, "0x00000001.00000002", s.Format64())
}
