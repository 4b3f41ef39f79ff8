package frame

import (
	"encoding/binary"
	"errors"
	"io"

	"parley/internal/domain"
)

const (
	// lengthLen is the size of the length prefix.
	lengthLen = 4
	// bodyHeaderLen is type + sequence number, counted by the length prefix.
	bodyHeaderLen = 1 + 8
	// HeaderLen is the full fixed header on the wire.
	HeaderLen = lengthLen + bodyHeaderLen

	// MaxPayloadLen caps the ciphertext carried by one frame. Sized for a
	// 1 MiB chunk plus the chunk framing and AEAD overhead.
	MaxPayloadLen = 1<<20 + 256
	// MaxFrameLen is the largest value the length prefix may declare.
	MaxFrameLen = bodyHeaderLen + MaxPayloadLen
)

var (
	// ErrFrameTooLarge means the declared length exceeds MaxFrameLen.
	ErrFrameTooLarge = errors.New("frame: declared length exceeds maximum")
	// ErrMalformed means the declared length cannot hold the fixed header.
	ErrMalformed = errors.New("frame: malformed header")
	// ErrNeedMore means Decode was given a partial frame.
	ErrNeedMore = errors.New("frame: need more data")
)

// Encode serialises f into a fresh byte slice.
func Encode(f domain.Frame) []byte {
	out := make([]byte, HeaderLen+len(f.Payload))
	binary.BigEndian.PutUint32(out[0:lengthLen], uint32(bodyHeaderLen+len(f.Payload)))
	out[lengthLen] = byte(f.Type)
	binary.BigEndian.PutUint64(out[lengthLen+1:HeaderLen], f.Seq)
	copy(out[HeaderLen:], f.Payload)
	return out
}

// Decode parses one frame from the front of buf and reports how many bytes
// it consumed. A partial frame returns ErrNeedMore and consumes nothing.
func Decode(buf []byte) (domain.Frame, int, error) {
	if len(buf) < lengthLen {
		return domain.Frame{}, 0, ErrNeedMore
	}
	declared := binary.BigEndian.Uint32(buf[0:lengthLen])
	if declared > MaxFrameLen {
		return domain.Frame{}, 0, ErrFrameTooLarge
	}
	if declared < bodyHeaderLen {
		return domain.Frame{}, 0, ErrMalformed
	}
	total := lengthLen + int(declared)
	if len(buf) < total {
		return domain.Frame{}, 0, ErrNeedMore
	}
	f := domain.Frame{
		Type:    domain.FrameType(buf[lengthLen]),
		Seq:     binary.BigEndian.Uint64(buf[lengthLen+1 : HeaderLen]),
		Payload: append([]byte(nil), buf[HeaderLen:total]...),
	}
	return f, total, nil
}

// WriteFrame serialises f onto w.
func WriteFrame(w io.Writer, f domain.Frame) error {
	if len(f.Payload) > MaxPayloadLen {
		return ErrFrameTooLarge
	}
	return writeAll(w, Encode(f))
}

// ReadFrame reads exactly one frame from r, blocking until it is complete.
// The length prefix is validated before the payload is read.
func ReadFrame(r io.Reader) (domain.Frame, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:lengthLen]); err != nil {
		return domain.Frame{}, err
	}
	declared := binary.BigEndian.Uint32(hdr[0:lengthLen])
	if declared > MaxFrameLen {
		return domain.Frame{}, ErrFrameTooLarge
	}
	if declared < bodyHeaderLen {
		return domain.Frame{}, ErrMalformed
	}
	if _, err := io.ReadFull(r, hdr[lengthLen:]); err != nil {
		return domain.Frame{}, err
	}
	payload := make([]byte, int(declared)-bodyHeaderLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return domain.Frame{}, err
	}
	return domain.Frame{
		Type:    domain.FrameType(hdr[lengthLen]),
		Seq:     binary.BigEndian.Uint64(hdr[lengthLen+1:]),
		Payload: payload,
	}, nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
