// Package secure implements the per-connection crypto engine: an
// authenticated ephemeral key exchange followed by per-direction
// ChaCha20-Poly1305 sealing of frame payloads.
//
// # Handshake
//
// Both sides hold a long-term X25519/Ed25519 identity; the peer's public
// halves are exchanged out of band and recorded in the trust store. The
// handshake itself uses fresh ephemeral X25519 keys:
//
//  1. Initiator sends its ephemeral public and its Ed25519 public.
//  2. Responder looks the Ed25519 key up in its trust set, replies with its
//     own ephemeral, Ed25519 public, and a signature over the transcript.
//  3. Initiator verifies the signature against the expected peer key and
//     returns its own transcript signature.
//
// The shared X25519 secret is expanded with HKDF-SHA256 under two distinct
// direction labels, so the initiator's sending key is never the responder's
// sending key. That asymmetry closes reflection attacks.
//
// # Sealing
//
// Each direction numbers its frames from zero. The sequence number selects
// the AEAD nonce and, together with the frame type, forms the associated
// data, so a frame replayed or moved to a different position fails to open.
// Open additionally tracks the expected sequence and refuses anything not
// strictly next, classifying it as a replay.
//
// # Errors
//
// Errors carry a Kind (handshake failure, authentication failure, replay,
// timeout, closed session) so the session layer can distinguish attack-like
// conditions from ordinary network failure. Use IsKind or errors.As.
package secure
