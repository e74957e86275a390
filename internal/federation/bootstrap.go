package federation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/nodeconfig"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// ErrIsolated is returned by Bootstrap when every configured introducer
// was unreachable, timed out, or replied with something other than a
// usable WELCOME.
var ErrIsolated = errors.New("federation: no introducer accepted bootstrap, starting isolated")

// Bootstrap dials each configured bootstrap peer in turn, sending
// HELLO_JOIN and waiting up to WelcomeTimeout for WELCOME. The first
// introducer to answer wins; the rest are left untried. With no
// configured bootstrap peers the node goes straight to StateReady
// (a standalone origin node). Concurrent callers collapse onto one
// attempt via singleflight.
func (f *Federation) Bootstrap(ctx context.Context, now func() int64) error {
	_, err, _ := f.sf.Do("bootstrap", func() (any, error) {
		return nil, f.bootstrapOnce(ctx, now)
	})
	return err
}

func (f *Federation) bootstrapOnce(ctx context.Context, now func() int64) error {
	if len(f.bootstrapSet) == 0 {
		f.log.Info("no bootstrap peers configured, starting as standalone origin")
		f.setState(StateReady)
		return nil
	}

	f.setState(StateDialing)
	start := time.Now()

	for _, peer := range f.bootstrapSet {
		if err := f.tryIntroducer(ctx, peer, now); err != nil {
			f.log.Warn("bootstrap attempt failed",
				logger.String("host", peer.Host), logger.Int("port", peer.Port), logger.Error(err))
			continue
		}

		f.setState(StateReady)
		metrics.GetGlobalCollector().RecordBootstrap(true, time.Since(start))
		metrics.HandshakeDuration.Observe(time.Since(start).Seconds())

		if err := f.Announce(ctx, now); err != nil {
			f.log.Warn("post-bootstrap announce failed", logger.Error(err))
		}
		return nil
	}

	f.setState(StateIsolated)
	metrics.GetGlobalCollector().RecordBootstrap(false, time.Since(start))
	f.log.Warn("bootstrap exhausted all introducers, starting isolated")
	return ErrIsolated
}

func (f *Federation) tryIntroducer(ctx context.Context, peer nodeconfig.BootstrapPeer, now func() int64) error {
	conn, err := f.dialer.Dial(ctx, peer.Host, peer.Port)
	if err != nil {
		return fmt.Errorf("dial %s:%d: %w", peer.Host, peer.Port, err)
	}
	defer conn.Close()

	pub, err := f.selfPubKeyB64()
	if err != nil {
		return fmt.Errorf("encode self public key: %w", err)
	}

	self, err := f.selfIdentifier()
	if err != nil {
		return fmt.Errorf("parse self server id: %w", err)
	}
	to := wire.NewBootstrap(fmt.Sprintf("%s:%d", peer.Host, peer.Port))

	env, err := wire.NewEnvelope(wire.ServerHelloJoin, self, to, now(), wire.HelloJoinPayload{
		ServerID: self.String(),
		Host:     f.selfHost,
		Port:     f.selfPort,
		PubKey:   pub,
	})
	if err != nil {
		return fmt.Errorf("build HELLO_JOIN: %w", err)
	}
	// HELLO_JOIN is allowed to carry no signature per the reference, but
	// this node signs it anyway since it already holds its own key.
	if err := signing.Sign(env, f.mesh.SelfKey); err != nil {
		return fmt.Errorf("sign HELLO_JOIN: %w", err)
	}

	if err := conn.Send(env); err != nil {
		return fmt.Errorf("send HELLO_JOIN: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, WelcomeTimeout)
	defer cancel()

	resp, err := conn.Recv(waitCtx)
	if err != nil {
		return fmt.Errorf("await WELCOME: %w", err)
	}
	if !resp.Type.Equal(wire.ServerWelcome) {
		return fmt.Errorf("expected WELCOME, got %s", resp.Type)
	}

	welcome, err := wire.ExtractPayload[wire.WelcomePayload](resp)
	if err != nil {
		return fmt.Errorf("extract WELCOME payload: %w", err)
	}

	introducerID := resp.From.String()
	f.mesh.UpsertPeer(&meshstate.PeerLink{
		ServerID:  introducerID,
		Host:      peer.Host,
		Port:      peer.Port,
		PubKey:    pinnedKeyOrNil(peer.PubKey),
		Connected: true,
	})

	for _, srv := range welcome.Servers {
		if srv.ServerID == self.String() {
			continue
		}
		f.mesh.UpsertPeer(&meshstate.PeerLink{
			ServerID: srv.ServerID,
			Host:     srv.Host,
			Port:     srv.Port,
			PubKey:   pinnedKeyOrNil(srv.PubKey),
		})
	}

	for _, cl := range welcome.Clients {
		f.mesh.SetUserHome(cl.UserID, cl.ServerID)
		if cl.PubKey != "" {
			if key, err := decodePubKey(cl.PubKey); err == nil {
				f.mesh.SetUserPubKey(cl.UserID, key)
			}
		}
	}

	f.log.Info("bootstrapped with introducer", logger.String("introducer_id", introducerID))
	return nil
}
