package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	headerSize = 20
	// maxFrameSize bounds a single payload. It covers the largest block
	// plus protocol overhead with room to spare.
	maxFrameSize = 16 << 20
)

// writeFrame writes a frame to the connection with the format:
//
//	[shardId u64][requestID u64][length u32][payload]
//
// all big endian.
func writeFrame(conn net.Conn, shardID uint64, requestID uint64, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds the limit of %d", len(data), maxFrameSize)
	}
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame. The payload is read into buf when it fits,
// otherwise into a new slice.
func readFrame(conn io.Reader, buf []byte) (shardID uint64, requestID uint64, data []byte, err error) {
	var header [headerSize]byte
	if _, err = io.ReadFull(conn, header[:]); err != nil {
		return 0, 0, nil, err
	}
	shardID = binary.BigEndian.Uint64(header[:8])
	requestID = binary.BigEndian.Uint64(header[8:16])
	n := binary.BigEndian.Uint32(header[16:])
	if n > maxFrameSize {
		return shardID, requestID, nil, fmt.Errorf("frame of %d bytes exceeds the limit of %d", n, maxFrameSize)
	}

	if cap(buf) < int(n) {
		buf = make([]byte, n)
	}
	data = buf[:n]
	if _, err = io.ReadFull(conn, data); err != nil {
		return shardID, requestID, nil, err
	}
	return shardID, requestID, data, nil
}
