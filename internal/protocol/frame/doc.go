// Package frame implements the length-prefixed wire framing.
//
// # Wire format
//
//	[Length:4B big-endian][Type:1B][Seq:8B big-endian][Ciphertext...]
//
// Length counts every byte after the length prefix (type + seq +
// ciphertext). Ciphertext is the AEAD output produced by
// internal/protocol/secure and already includes the integrity tag.
//
// # Limits
//
// A declared length above MaxFrameLen is rejected with ErrFrameTooLarge
// before any payload byte is read, so a malicious peer cannot force the
// reader to allocate an arbitrary buffer. A length too short to hold the
// fixed header remainder is ErrMalformed.
package frame
