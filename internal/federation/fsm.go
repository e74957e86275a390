package federation

import (
	"sync"
	"time"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/nodeconfig"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
	"golang.org/x/sync/singleflight"
)

// State is a node's position in the bootstrap FSM.
type State int

const (
	StateUninit State = iota
	StateDialing
	StateReady
	StateIsolated
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateDialing:
		return "dialing"
	case StateReady:
		return "ready"
	case StateIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// WelcomeTimeout bounds how long Bootstrap waits for a WELCOME reply to
// a single HELLO_JOIN, per original_source/server/src/bootstrap.rs's
// 10 second tokio::time::timeout.
const WelcomeTimeout = 10 * time.Second

// Federation drives this node's membership in the mesh: dialing
// introducers, applying WELCOME, and re-announcing itself to the rest
// of the network once joined.
type Federation struct {
	mu    sync.RWMutex
	state State

	mesh         *meshstate.State
	selfHost     string
	selfPort     int
	bootstrapSet []nodeconfig.BootstrapPeer
	dialer       Dialer
	log          logger.Logger

	sf singleflight.Group
}

// New builds a Federation for a node that will listen on selfHost:selfPort
// and dial the given bootstrap peers (possibly empty, meaning standalone).
func New(mesh *meshstate.State, selfHost string, selfPort int, bootstrapSet []nodeconfig.BootstrapPeer, dialer Dialer, log logger.Logger) *Federation {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Federation{
		state:        StateUninit,
		mesh:         mesh,
		selfHost:     selfHost,
		selfPort:     selfPort,
		bootstrapSet: bootstrapSet,
		dialer:       dialer,
		log:          log,
	}
}

// State returns the current FSM state.
func (f *Federation) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Bootstrapped reports whether the node has completed a successful
// bootstrap (or started standalone with no configured peers).
func (f *Federation) Bootstrapped() bool {
	return f.State() == StateReady
}

func (f *Federation) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	metrics.BootstrapState.Set(float64(stateMetricValue(s)))
}

func stateMetricValue(s State) int {
	switch s {
	case StateUninit:
		return metrics.BootstrapStateUninit
	case StateDialing:
		return metrics.BootstrapStateDialing
	case StateReady:
		return metrics.BootstrapStateReady
	case StateIsolated:
		return metrics.BootstrapStateIsolated
	default:
		return metrics.BootstrapStateUninit
	}
}

// selfPubKeyB64 returns this node's public key in the wire's base64url
// encoding, used in HELLO_JOIN/ANNOUNCE payloads.
func (f *Federation) selfPubKeyB64() (string, error) {
	return pubKeyB64(f.mesh.SelfKey)
}

func pubKeyB64(key *nodekey.KeyPair) (string, error) {
	return key.PublicKeyBase64URL()
}

// selfIdentifier parses this node's configured server_id into a wire
// Identifier, used as the From field on HELLO_JOIN/ANNOUNCE.
func (f *Federation) selfIdentifier() (wire.Identifier, error) {
	return wire.ParseIdentifier(f.mesh.SelfServerID)
}

// pinnedKeyOrNil decodes a base64url-encoded SPKI public key, returning
// nil (rather than an error) on failure so a malformed key in a WELCOME
// payload doesn't abort the whole bootstrap — delivery to that peer will
// simply fail signature verification later and get logged then.
func pinnedKeyOrNil(pubKeyB64 string) *nodekey.KeyPair {
	if pubKeyB64 == "" {
		return nil
	}
	key, err := decodePubKey(pubKeyB64)
	if err != nil {
		return nil
	}
	return key
}

func decodePubKey(pubKeyB64 string) (*nodekey.KeyPair, error) {
	return nodekey.LoadPublicKeyBase64URL(pubKeyB64)
}
