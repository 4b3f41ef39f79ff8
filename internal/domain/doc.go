// Package domain defines the core types and store interfaces shared across
// parley: key material, peer identities, wire frames, and transfer state.
//
// Keys are fixed-size array types with Slice helpers to avoid accidental
// reallocation of secret material. Store interfaces are implemented by
// internal/store.
package domain
