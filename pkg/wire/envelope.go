package wire

import (
	"encoding/json"
	"fmt"
)

// Envelope is the canonical message wrapper signed and routed between
// nodes. Payload is kept as raw JSON so handlers can extract their own
// concrete payload type without a double round-trip.
type Envelope struct {
	Type    PayloadType     `json:"type"`
	From    Identifier      `json:"from"`
	To      Identifier      `json:"to"`
	Ts      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload"`
	Sig     string          `json:"sig"`
}

// NewEnvelope marshals payload and wraps it in an unsigned Envelope (Sig
// is left empty; callers sign it with pkg/nodekey and set Sig themselves).
func NewEnvelope(typ PayloadType, from, to Identifier, ts int64, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %s: %w", typ, err)
	}
	return &Envelope{
		Type:    typ,
		From:    from,
		To:      to,
		Ts:      ts,
		Payload: raw,
		Sig:     "",
	}, nil
}

// SigningBytes returns the canonical byte sequence that must be signed /
// verified: the envelope encoded as JSON with Sig cleared.
func (e *Envelope) SigningBytes() ([]byte, error) {
	clone := *e
	clone.Sig = ""
	data, err := json.Marshal(&clone)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal envelope for signing: %w", err)
	}
	return data, nil
}

// ErrPayloadExtraction is wrapped by ExtractPayload on decode failure.
type ErrPayloadExtraction struct {
	Type PayloadType
	Err  error
}

func (e *ErrPayloadExtraction) Error() string {
	return fmt.Sprintf("wire: extract %s payload: %v", e.Type, e.Err)
}

func (e *ErrPayloadExtraction) Unwrap() error { return e.Err }

// ExtractPayload decodes msg.Payload into T, the generic analogue of the
// Rust reference's try_extract_payload helper.
func ExtractPayload[T any](msg *Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return out, &ErrPayloadExtraction{Type: msg.Type, Err: err}
	}
	return out, nil
}
