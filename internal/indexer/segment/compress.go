package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// blockHeaderSize covers the uncompressed and compressed lengths. A
// compressed length of zero marks a block stored as is.
const blockHeaderSize = 8

func compressBlock(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	if n == 0 || n >= len(data) {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}
	out := make([]byte, blockHeaderSize+n)
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	copy(out[blockHeaderSize:], compressed[:n])
	return out, nil
}

func decompressBlock(block []byte) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("block too small for header: %w", apperrors.ErrCorruptSegment)
	}
	rawSize := binary.LittleEndian.Uint32(block[0:])
	compressedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]

	if compressedSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, fmt.Errorf("stored block truncated: %w", apperrors.ErrCorruptSegment)
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < compressedSize {
		return nil, fmt.Errorf("compressed block truncated: %w", apperrors.ErrCorruptSegment)
	}
	out := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(body[:compressedSize], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 uncompress: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	if uint32(n) != rawSize {
		return nil, fmt.Errorf("decompressed size mismatch: %w", apperrors.ErrCorruptSegment)
	}
	return out, nil
}
