// Package identity manages the local long-term key pair: generation,
// passphrase-protected storage, and fingerprint display.
package identity
