// Package federation implements the bootstrap/welcome/announce handshake
// that joins this node to the rest of the mesh, restated from
// original_source/server/src/bootstrap.rs as a Go FSM instead of a single
// linear async function.
package federation

import (
	"context"

	"github.com/veilnet/veilnet/pkg/wire"
)

// PeerConn is one outbound connection opened to dial a bootstrap
// introducer or announce target. internal/transport/peerlink implements
// this over a gorilla/websocket client connection; tests use a fake.
type PeerConn interface {
	Send(env *wire.Envelope) error
	Recv(ctx context.Context) (*wire.Envelope, error)
	Close() error
}

// Dialer opens a PeerConn to host:port. Kept as a narrow interface so
// bootstrap/announce logic never imports the websocket package directly.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (PeerConn, error)
}
