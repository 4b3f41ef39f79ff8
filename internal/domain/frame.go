package domain

// FrameType tags one unit of the wire protocol.
type FrameType byte

const (
	FrameChat      FrameType = 0x01
	FrameFileMeta  FrameType = 0x02
	FrameFileChunk FrameType = 0x03
	FrameAck       FrameType = 0x04
	FrameClose     FrameType = 0x05
)

// Frame is one decoded unit of the wire protocol. Payload is ciphertext on
// the wire and plaintext after the session engine has opened it.
//
// Seq is strictly increasing per direction; the receiver rejects anything
// out of order or replayed.
type Frame struct {
	Type    FrameType
	Seq     uint64
	Payload []byte
}

// Message is a decrypted chat line. Ephemeral; nothing here is persisted.
type Message struct {
	From        string
	Plaintext   []byte
	Seq         uint64
	ReceivedUTC int64
}
