package domain

import (
	"reflect"
	"testing"
)

func TestTransferState_TotalChunks(t *testing.T) {
	cases := []struct {
		size, chunk int64
		want        uint32
	}{
		{0, 1024, 0},
		{1, 1024, 1},
		{1024, 1024, 1},
		{1025, 1024, 2},
		{10 * 1024, 1024, 10},
		{5, 0, 0},
	}
	for _, c := range cases {
		st := TransferState{Size: c.size, ChunkSize: c.chunk}
		if got := st.TotalChunks(); got != c.want {
			t.Errorf("TotalChunks(size=%d, chunk=%d) = %d, want %d", c.size, c.chunk, got, c.want)
		}
	}
}

func TestChunkBitmap(t *testing.T) {
	b := NewChunkBitmap(10)
	if len(b) != 2 {
		t.Fatalf("bitmap length = %d, want 2", len(b))
	}
	for i := uint32(0); i < 10; i++ {
		if b.Has(i) {
			t.Fatalf("fresh bitmap has bit %d set", i)
		}
	}

	b.Set(0)
	b.Set(7)
	b.Set(9)
	b.Set(9) // setting twice is fine
	if !b.Has(0) || !b.Has(7) || !b.Has(9) || b.Has(8) {
		t.Fatalf("unexpected bits: %08b", []byte(b))
	}
	if b.Count() != 3 {
		t.Fatalf("Count = %d, want 3", b.Count())
	}

	// Out-of-range access is inert.
	b.Set(100)
	if b.Has(100) {
		t.Fatal("out-of-range bit reported set")
	}
}

func TestTransferState_Pending(t *testing.T) {
	st := TransferState{Size: 10 * 1024, ChunkSize: 1024, Done: NewChunkBitmap(10)}
	for _, i := range []uint32{0, 1, 2, 3, 4, 5} {
		st.Done.Set(i)
	}
	if got, want := st.Pending(), []uint32{6, 7, 8, 9}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Pending = %v, want %v", got, want)
	}
	if st.Complete() {
		t.Fatal("incomplete transfer reported complete")
	}
	for _, i := range []uint32{6, 7, 8, 9} {
		st.Done.Set(i)
	}
	if !st.Complete() {
		t.Fatal("complete transfer not reported complete")
	}
	if len(st.Pending()) != 0 {
		t.Fatalf("Pending after completion = %v", st.Pending())
	}
}
