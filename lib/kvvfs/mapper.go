package kvvfs

import (
	"fmt"

	"github.com/shengyf2/sqliteredis/lib/store"
)

// deleteBatch is the number of keys removed per store round trip.
const deleteBatch = 256

// mergeBlock overlays data at off onto a copy of existing and returns the
// resulting block of exactly blockSize bytes. A nil existing block is all
// zeros. off+len(data) must not exceed blockSize.
func mergeBlock(existing []byte, blockSize, off int, data []byte) []byte {
	merged := make([]byte, blockSize)
	copy(merged, existing)
	copy(merged[off:], data)
	return merged
}

// blockMapper turns byte ranges into block operations on one file.
type blockMapper struct {
	store     store.IStore
	keys      keys
	blockSize int64
	maxSize   int64 // blockSize * Config.MaxBlocks
}

// checkRange fails for [off, off+n) reaching past maxSize, including ranges
// whose end overflows int64.
func (m *blockMapper) checkRange(off int64, n int) error {
	if off > m.maxSize || int64(n) > m.maxSize-off {
		return fmt.Errorf("%w: %d bytes at offset %d, limit %d", ErrFileTooLarge, n, off, m.maxSize)
	}
	return nil
}

// span describes the part of one block touched by a byte range.
type span struct {
	index  int64 // block index
	inOff  int   // offset inside the block
	length int   // bytes inside the block
	bufOff int   // offset inside the caller's buffer
}

// spans splits [off, off+n) into per block spans.
func (m *blockMapper) spans(off int64, n int) []span {
	if n <= 0 {
		return nil
	}
	first := off / m.blockSize
	last := (off + int64(n) - 1) / m.blockSize
	out := make([]span, 0, last-first+1)
	bufOff := 0
	for idx := first; idx <= last; idx++ {
		inOff := 0
		if idx == first {
			inOff = int(off % m.blockSize)
		}
		length := int(m.blockSize) - inOff
		if rest := n - bufOff; rest < length {
			length = rest
		}
		out = append(out, span{index: idx, inOff: inOff, length: length, bufOff: bufOff})
		bufOff += length
	}
	return out
}

// getBlock loads one block. A missing block is returned as nil.
func (m *blockMapper) getBlock(index int64) ([]byte, error) {
	blockReads.Inc()
	raw, ok, err := m.store.Get(m.keys.block(index))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if int64(len(raw)) != m.blockSize {
		return nil, fmt.Errorf("%w: block %d has %d bytes, want %d", ErrProtocol, index, len(raw), m.blockSize)
	}
	return raw, nil
}

func (m *blockMapper) putBlock(index int64, block []byte) error {
	blockWrites.Inc()
	return m.store.Set(m.keys.block(index), block)
}

// read fills p from the blocks covering [off, off+len(p)). Absent blocks
// read as zeros.
func (m *blockMapper) read(p []byte, off int64) error {
	for _, sp := range m.spans(off, len(p)) {
		dst := p[sp.bufOff : sp.bufOff+sp.length]
		block, err := m.getBlock(sp.index)
		if err != nil {
			return err
		}
		if block == nil {
			clear(dst)
			continue
		}
		copy(dst, block[sp.inOff:sp.inOff+sp.length])
	}
	return nil
}

// write stores p at off. Partially covered blocks are read, merged and
// written back, fully covered blocks are written without a read.
func (m *blockMapper) write(p []byte, off int64) error {
	for _, sp := range m.spans(off, len(p)) {
		src := p[sp.bufOff : sp.bufOff+sp.length]
		if int64(sp.length) == m.blockSize {
			block := make([]byte, m.blockSize)
			copy(block, src)
			if err := m.putBlock(sp.index, block); err != nil {
				return err
			}
			continue
		}
		existing, err := m.getBlock(sp.index)
		if err != nil {
			return err
		}
		rmwMerges.Inc()
		if err := m.putBlock(sp.index, mergeBlock(existing, int(m.blockSize), sp.inOff, src)); err != nil {
			return err
		}
	}
	return nil
}

// zeroTail zeroes the bytes of block index from inOff on. Absent blocks are
// already zero.
func (m *blockMapper) zeroTail(index int64, inOff int) error {
	existing, err := m.getBlock(index)
	if err != nil || existing == nil {
		return err
	}
	clear(existing[inOff:])
	return m.putBlock(index, existing)
}

// deleteRange removes the blocks [from, to).
func (m *blockMapper) deleteRange(from, to int64) error {
	batch := make([]string, 0, deleteBatch)
	for idx := from; idx < to; idx++ {
		batch = append(batch, m.keys.block(idx))
		if len(batch) == deleteBatch || idx == to-1 {
			if err := m.store.Delete(batch...); err != nil {
				return err
			}
			blockDeletes.Add(len(batch))
			batch = batch[:0]
		}
	}
	return nil
}

// blocksFor returns the number of blocks needed to hold size bytes.
func (m *blockMapper) blocksFor(size int64) int64 {
	return (size + m.blockSize - 1) / m.blockSize
}
