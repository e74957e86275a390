package federation

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleHelloJoin answers an incoming SERVER_HELLO_JOIN from a node
// dialing this one as an introducer, restated from
// original_source/server/src/handlers/server_hello_join.rs. It registers
// the joining server and returns a signed SERVER_WELCOME snapshotting
// every peer and user this node currently knows, for the caller (the
// peer-link transport) to send back over the same connection.
func (f *Federation) HandleHelloJoin(env *wire.Envelope, now func() int64) (*wire.Envelope, error) {
	if !env.Type.Equal(wire.ServerHelloJoin) {
		return nil, apierr.NewClientError(wire.ErrCodeInvalidPayloadType, "expected SERVER_HELLO_JOIN, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.HelloJoinPayload](env)
	if err != nil {
		return nil, apierr.NewClientError(wire.ErrCodePayloadExtraction, "%v", err)
	}
	if !env.From.IsID() {
		return nil, apierr.NewClientError(wire.ErrCodeInvalidSignature, "SERVER_HELLO_JOIN sender must be an id")
	}
	joiningID := env.From.String()

	f.mesh.UpsertPeer(&meshstate.PeerLink{
		ServerID: joiningID,
		Host:     payload.Host,
		Port:     payload.Port,
		PubKey:   pinnedKeyOrNil(payload.PubKey),
	})
	f.log.Info("server joining network",
		logger.String("server_id", joiningID), logger.String("host", payload.Host), logger.Int("port", payload.Port))

	self, err := f.selfIdentifier()
	if err != nil {
		return nil, apierr.NewServerError(fmt.Errorf("parse self server id: %w", err))
	}

	var servers []wire.ServerInfo
	for _, p := range f.mesh.Peers() {
		if p.ServerID == joiningID || p.ServerID == self.String() {
			continue
		}
		var pub string
		if p.PubKey != nil {
			pub, _ = p.PubKey.PublicKeyBase64URL()
		}
		servers = append(servers, wire.ServerInfo{ServerID: p.ServerID, Host: p.Host, Port: p.Port, PubKey: pub})
	}

	var clients []wire.ClientInfo
	for _, userID := range f.mesh.ListUsers() {
		home, ok := f.mesh.UserHome(userID)
		if !ok {
			continue
		}
		if home == meshstate.LocalServerID {
			home = self.String()
		}
		var pub string
		if key, ok := f.mesh.UserPubKey(userID); ok {
			pub, _ = key.PublicKeyBase64URL()
		}
		clients = append(clients, wire.ClientInfo{UserID: userID, ServerID: home, PubKey: pub})
	}

	welcomeEnv, err := wire.NewEnvelope(wire.ServerWelcome, self, env.From, now(), wire.WelcomePayload{
		AssignedServerID: joiningID,
		Servers:          servers,
		Clients:          clients,
	})
	if err != nil {
		return nil, apierr.NewServerError(fmt.Errorf("build SERVER_WELCOME: %w", err))
	}
	if err := signing.Sign(welcomeEnv, f.mesh.SelfKey); err != nil {
		return nil, apierr.NewServerError(fmt.Errorf("sign SERVER_WELCOME: %w", err))
	}
	return welcomeEnv, nil
}

// HandleAnnounce records an incoming SERVER_ANNOUNCE, restated from
// original_source/server/src/handlers/server_announce.rs. Unlike the
// reference, which trusts payload.pubkey unconditionally on first sight,
// this pins the announced key only when the peer is not already known,
// so an established peer's pinned key can't be silently swapped by a
// later spoofed ANNOUNCE (Open Question resolved, see DESIGN.md).
func (f *Federation) HandleAnnounce(env *wire.Envelope) error {
	if !env.Type.Equal(wire.ServerAnnounce) {
		return apierr.NewClientError(wire.ErrCodeInvalidPayloadType, "expected SERVER_ANNOUNCE, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.AnnouncePayload](env)
	if err != nil {
		return apierr.NewClientError(wire.ErrCodePayloadExtraction, "%v", err)
	}
	if !env.From.IsID() {
		return apierr.NewClientError(wire.ErrCodeInvalidSignature, "SERVER_ANNOUNCE sender must be an id")
	}
	announcerID := env.From.String()

	if _, known := f.mesh.Peer(announcerID); known {
		f.log.Info("server re-announced", logger.String("server_id", announcerID))
		return nil
	}

	f.mesh.UpsertPeer(&meshstate.PeerLink{
		ServerID: announcerID,
		Host:     payload.Host,
		Port:     payload.Port,
		PubKey:   pinnedKeyOrNil(payload.PubKey),
	})
	f.log.Info("learned new server from announce",
		logger.String("server_id", announcerID), logger.String("host", payload.Host), logger.Int("port", payload.Port))
	return nil
}
