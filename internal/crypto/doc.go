// Package crypto exposes the minimal primitives used by parley.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Short public-key fingerprints for display and trust records
//     (Fingerprint)
//   - Base64 helpers for out-of-band key exchange (B64, FromB64)
//
// # Notes
//
// All functions work with the fixed-size array types defined in
// internal/domain to avoid accidental reallocations. Callers should treat
// returned secrets as sensitive and rely on memzero.Zero when practical to
// reduce lifetime in memory.
package crypto
