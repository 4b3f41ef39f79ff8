package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FileMeta travels as JSON; chunks and acks use a compact binary layout:
//
//	chunk: [id:16][index:4 BE][data...]
//	ack:   [id:16][index:4 BE]
const chunkHeaderLen = 16 + 4

var errShortPayload = errors.New("transfer: payload too short")

// Meta is the FileMeta frame body.
type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	ChunkSize int64  `json:"chunk_size"`
	SHA256    []byte `json:"sha256"`
}

func encodeChunk(id uuid.UUID, index uint32, data []byte) []byte {
	out := make([]byte, chunkHeaderLen+len(data))
	copy(out[:16], id[:])
	binary.BigEndian.PutUint32(out[16:chunkHeaderLen], index)
	copy(out[chunkHeaderLen:], data)
	return out
}

func decodeChunk(payload []byte) (id uuid.UUID, index uint32, data []byte, err error) {
	if len(payload) < chunkHeaderLen {
		return uuid.UUID{}, 0, nil, errShortPayload
	}
	copy(id[:], payload[:16])
	index = binary.BigEndian.Uint32(payload[16:chunkHeaderLen])
	return id, index, payload[chunkHeaderLen:], nil
}

func encodeAck(id uuid.UUID, index uint32) []byte {
	var out [chunkHeaderLen]byte
	copy(out[:16], id[:])
	binary.BigEndian.PutUint32(out[16:], index)
	return out[:]
}

func decodeAck(payload []byte) (id uuid.UUID, index uint32, err error) {
	if len(payload) != chunkHeaderLen {
		return uuid.UUID{}, 0, fmt.Errorf("transfer: ack payload length %d", len(payload))
	}
	copy(id[:], payload[:16])
	return id, binary.BigEndian.Uint32(payload[16:]), nil
}
