// Package store persists parley state under the home directory:
//
//   - identity.enc: long-term keys, encrypted with a passphrase-derived key
//   - peers.json: trusted remote public keys by display name
//   - transfers/<id>.json: resume state for interrupted file transfers
//
// Writes go through a temp file and rename so a crash never leaves a
// half-written record behind.
package store
