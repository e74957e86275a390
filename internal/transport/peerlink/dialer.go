package peerlink

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/veilnet/veilnet/internal/federation"
)

// WSDialer implements internal/federation.Dialer over a websocket client
// connection to another node's /peer endpoint, adapted from the
// teacher's WSTransport.Connect dial logic.
type WSDialer struct {
	HandshakeTimeout time.Duration
}

// NewWSDialer builds a WSDialer with the given handshake timeout.
func NewWSDialer(handshakeTimeout time.Duration) *WSDialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &WSDialer{HandshakeTimeout: handshakeTimeout}
}

// Dial opens a websocket connection to host:port's /peer endpoint.
func (d *WSDialer) Dial(ctx context.Context, host string, port int) (federation.PeerConn, error) {
	url := fmt.Sprintf("ws://%s:%d/peer", host, port)
	dialer := &websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("peerlink: dial %s failed (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("peerlink: dial %s failed: %w", url, err)
	}
	return newConn(ws), nil
}
