// Package session ties one connection to a crypto context and a dispatch
// loop.
//
// # Lifecycle
//
//	Handshaking -> Established -> Closing -> Closed
//
// A session is created by Initiate (dialing side) or Respond (accepting
// side); both run the authenticated handshake under a timeout and fail to
// Closed without ever reaching Established. Once established, a receive
// loop decodes and opens inbound frames strictly in sequence, delivering
// chat to the message sink and routing transfer frames to the transfer
// manager; a send loop drains a bounded outbound queue, so senders block
// when the peer is slow rather than growing memory.
//
// Close flushes queued frames, emits a Close frame, and waits a bounded
// time for the peer's Close before forcing teardown. Teardown always wipes
// the session keys, pauses open transfers, and releases the connection,
// whichever side initiated it.
//
// Unknown frame types are ignored for forward compatibility. Crypto and
// framing failures are fatal to the session and carry enough detail to
// tell attack-like conditions (authentication failure, replay) from
// ordinary network failure; transfer failures are scoped to the transfer.
package session
