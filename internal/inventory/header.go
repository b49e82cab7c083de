package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"rdlc/internal/codec"
)

// Redo file layout constants. Block 0 identifies the file and its
// geometry; block 1 describes the generation currently occupying the
// file. Every block from block 1 on opens with the same small header
// carrying its number and the owning sequence; block 0 carries only the
// file type byte in that position.
const (
	FileTypeRedo = 0x22

	BlockSizeMin = 512
	BlockSizeMax = 4096

	headerMagic = 0x7A7B7C7D

	ofsBlockSize = 20
	ofsNumBlocks = 24
	ofsMagic     = 28

	// per-block header
	OfsBlockNumber = 4
	OfsSequence    = 8

	// block 1 payload
	ofsVersion   = 20
	ofsResetlogs = 160
	ofsFirstScn  = 180
	ofsNextScn   = 192
)

var (
	// ErrBadFileHeader means the file is not a redo log or its
	// geometry is implausible.
	ErrBadFileHeader = errors.New("invalid redo log file header")
)

// FileHeader is the decoded view of a redo log's first two blocks.
type FileHeader struct {
	BlockSize uint32
	NumBlocks uint32
	Version   uint32
	Sequence  uint32
	Resetlogs uint32
	FirstScn  codec.SCN
	NextScn   codec.SCN
}

// ReadFileHeader opens the file just long enough to decode its header
// blocks. The handle stays closed between refreshes so the database is
// free to recycle the file underneath us.
func ReadFileHeader(path string, c codec.Codec) (*FileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFileHeader(f, c)
}

// DecodeFileHeader reads the two header blocks from r.
func DecodeFileHeader(r io.ReaderAt, c codec.Codec) (*FileHeader, error) {
	buf := make([]byte, BlockSizeMin)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("reading block 0: %w", err)
	}

	if buf[1] != FileTypeRedo {
		return nil, fmt.Errorf("%w: file type 0x%02x", ErrBadFileHeader, buf[1])
	}
	hdr := &FileHeader{
		BlockSize: uint32(c.Read16(buf[ofsBlockSize:])),
		NumBlocks: c.Read32(buf[ofsNumBlocks:]),
	}
	if hdr.BlockSize < BlockSizeMin || hdr.BlockSize > BlockSizeMax {
		return nil, fmt.Errorf("%w: block size %d", ErrBadFileHeader, hdr.BlockSize)
	}
	if c.Read32(buf[ofsMagic:]) != headerMagic {
		return nil, fmt.Errorf("%w: bad signature", ErrBadFileHeader)
	}

	block := make([]byte, hdr.BlockSize)
	if _, err := r.ReadAt(block, int64(hdr.BlockSize)); err != nil {
		return nil, fmt.Errorf("reading block 1: %w", err)
	}
	if block[0] != 0x01 || block[1] != FileTypeRedo {
		return nil, fmt.Errorf("%w: bad block 1 signature", ErrBadFileHeader)
	}

	hdr.Sequence = c.Read32(block[OfsSequence:])
	hdr.Version = c.Read32(block[ofsVersion:])
	hdr.Resetlogs = c.Read32(block[ofsResetlogs:])
	hdr.FirstScn = c.ReadSCN(block[ofsFirstScn:])
	hdr.NextScn = c.ReadSCN(block[ofsNextScn:])
	return hdr, nil
}

// EncodeFileHeader renders the two header blocks. The write path of
// the codec exists for exactly this: building log images in tests and
// repair tooling.
func EncodeFileHeader(hdr *FileHeader, c codec.Codec) []byte {
	buf := make([]byte, 2*hdr.BlockSize)

	buf[1] = FileTypeRedo
	c.Write16(buf[ofsBlockSize:], uint16(hdr.BlockSize))
	c.Write32(buf[ofsNumBlocks:], hdr.NumBlocks)
	c.Write32(buf[ofsMagic:], headerMagic)

	block := buf[hdr.BlockSize:]
	MarkBlock(block, 1, hdr.Sequence, c)
	c.Write32(block[ofsVersion:], hdr.Version)
	c.Write32(block[ofsResetlogs:], hdr.Resetlogs)
	c.WriteSCN(block[ofsFirstScn:], hdr.FirstScn)
	c.WriteSCN(block[ofsNextScn:], hdr.NextScn)
	return buf
}

// MarkBlock stamps a block's header with its number and the sequence
// of the generation writing it.
func MarkBlock(block []byte, blockNumber, sequence uint32, c codec.Codec) {
	block[0] = 0x01
	block[1] = FileTypeRedo
	c.Write32(block[OfsBlockNumber:], blockNumber)
	c.Write32(block[OfsSequence:], sequence)
}
