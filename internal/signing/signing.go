// Package signing wraps pkg/nodekey's PSS sign/verify around wire.Envelope,
// restating original_source/server/src/lib.rs's sign_message/verify_message
// free functions as methods callers reach for from every package that
// forwards or re-signs an envelope (federation, presence, routing).
package signing

import (
	"fmt"

	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

// Sign computes env's signature over its canonical JSON with Sig cleared
// and writes the result into env.Sig.
func Sign(env *wire.Envelope, key *nodekey.KeyPair) error {
	bytes, err := env.SigningBytes()
	if err != nil {
		return fmt.Errorf("signing: compute signing bytes: %w", err)
	}
	sig, err := key.Sign(bytes)
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	env.Sig = sig
	return nil
}

// Verify checks env.Sig against key, over env's canonical JSON with Sig
// cleared.
func Verify(env *wire.Envelope, key *nodekey.KeyPair) error {
	bytes, err := env.SigningBytes()
	if err != nil {
		return fmt.Errorf("signing: compute signing bytes: %w", err)
	}
	if err := key.Verify(bytes, env.Sig); err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	return nil
}
