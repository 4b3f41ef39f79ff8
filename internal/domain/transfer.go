package domain

// TransferStatus is the lifecycle of a single file transfer.
type TransferStatus string

const (
	TransferAnnounced  TransferStatus = "announced"
	TransferInProgress TransferStatus = "in_progress"
	TransferPaused     TransferStatus = "paused"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
)

// TransferState tracks one chunked file transfer. It is persisted after
// every mutation so an interrupted transfer can resume from the same bitmap
// in a later session.
type TransferState struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
	ChunkSize int64          `json:"chunk_size"`
	SHA256    []byte         `json:"sha256"`
	Path      string         `json:"path"`
	Outgoing  bool           `json:"outgoing"`
	Status    TransferStatus `json:"status"`
	Done      ChunkBitmap    `json:"done"`
}

// TotalChunks returns the number of chunks for the recorded size, the last
// chunk possibly shorter than ChunkSize.
func (t TransferState) TotalChunks() uint32 {
	if t.ChunkSize <= 0 {
		return 0
	}
	return uint32((t.Size + t.ChunkSize - 1) / t.ChunkSize)
}

// Complete reports whether every chunk index has been marked done.
func (t TransferState) Complete() bool {
	return t.Done.Count() == int(t.TotalChunks())
}

// Pending returns the chunk indices not yet marked done, in order.
func (t TransferState) Pending() []uint32 {
	total := t.TotalChunks()
	out := make([]uint32, 0)
	for i := uint32(0); i < total; i++ {
		if !t.Done.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// ChunkBitmap records which chunk indices have been received or
// acknowledged. One bit per chunk, index 0 at the lowest bit of byte 0.
type ChunkBitmap []byte

// NewChunkBitmap returns a bitmap sized for n chunks.
func NewChunkBitmap(n uint32) ChunkBitmap {
	return make(ChunkBitmap, (n+7)/8)
}

func (b ChunkBitmap) Has(i uint32) bool {
	byteIdx := i / 8
	if int(byteIdx) >= len(b) {
		return false
	}
	return b[byteIdx]&(1<<(i%8)) != 0
}

func (b ChunkBitmap) Set(i uint32) {
	byteIdx := i / 8
	if int(byteIdx) >= len(b) {
		return
	}
	b[byteIdx] |= 1 << (i % 8)
}

// Count returns the number of set bits.
func (b ChunkBitmap) Count() int {
	n := 0
	for _, by := range b {
		for by != 0 {
			n += int(by & 1)
			by >>= 1
		}
	}
	return n
}
