// Package commands implements the parley CLI.
//
// Typical flow between two machines A and B:
//
//	A$ parley init -p <passphrase>
//	A$ parley fingerprint -p <passphrase>        # prints keys to share
//	B$ parley trust add alice <x25519> <ed25519> # keys exchanged out of band
//	B$ parley listen -p <passphrase>
//	A$ parley dial --peer bob --addr host:7465 -p <passphrase>
//
// Inside a live session, lines typed on stdin are chat; /send <path>
// starts a file transfer, /resume <id> continues a paused one, /quit
// closes the session cleanly.
package commands
