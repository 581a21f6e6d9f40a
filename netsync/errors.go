package netsync

import "github.com/pkg/errors"

// ErrUnknownPeer is returned when an operation names a peer ID the manager
// has no PeerState for.
var ErrUnknownPeer = errors.New("netsync: unknown peer")
