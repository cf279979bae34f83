// Package core holds the transport-facing contracts shared between the
// application layer and the adapters.
package core

// Frame is a raw payload ready for the wire.
type Frame []byte

// PushConnection abstracts the persistent per-client push transport.
// Owned by the adapter; the adapter must Close() it.
type PushConnection interface {
	TrySend(Frame) error
	Close()
}
