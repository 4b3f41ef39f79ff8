// Package transfer implements chunked, resumable file transfer over an
// established peer session.
//
// # Flow
//
// The sender announces a file (FileMeta: id, name, size, chunk size, whole
// file SHA-256) and then streams FileChunk frames for every chunk the peer
// has not acknowledged. The receiver writes each chunk at
// index*chunkSize, acknowledges it, and marks it in a bitmap. Duplicate
// chunks are acknowledged again but never rewritten.
//
// # Resumability
//
// Both sides persist their bitmap after every mutation. When a connection
// drops, open transfers move to Paused, not Failed; a later session resumes
// by sending exactly the pending chunks. Completion requires every index
// acknowledged and, on the receiving side, the destination hash matching
// the announced one.
//
// Transfer failures are scoped to the transfer: chat and other transfers on
// the same session continue.
package transfer
