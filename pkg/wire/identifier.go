// Copyright (C) 2025 veilnet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IdentifierKind discriminates the three shapes an Identifier can take.
type IdentifierKind int

const (
	KindID IdentifierKind = iota
	KindBroadcast
	KindBootstrap
)

const broadcastLiteral = "*"

// Identifier is the sum type used for every `from`/`to` field on the wire.
// It parses in a fixed priority order: UUIDv4 first, then the literal "*"
// (broadcast), then anything else is treated as a bootstrap host:port
// address. This mirrors the priority order of the Rust reference's
// Identifier::FromStr.
type Identifier struct {
	kind      IdentifierKind
	id        uuid.UUID
	bootstrap string
}

// NewID wraps a UUID as an Id identifier.
func NewID(id uuid.UUID) Identifier {
	return Identifier{kind: KindID, id: id}
}

// NewRandomID generates a fresh random Id identifier.
func NewRandomID() Identifier {
	return Identifier{kind: KindID, id: uuid.New()}
}

// Broadcast is the well-known "*" identifier.
var Broadcast = Identifier{kind: KindBroadcast}

// NewBootstrap wraps a host:port address as a Bootstrap identifier.
func NewBootstrap(addr string) Identifier {
	return Identifier{kind: KindBootstrap, bootstrap: addr}
}

// Kind reports which shape this identifier holds.
func (i Identifier) Kind() IdentifierKind { return i.kind }

// IsID reports whether this identifier is a concrete UUID.
func (i Identifier) IsID() bool { return i.kind == KindID }

// IsBroadcast reports whether this identifier is the broadcast sentinel.
func (i Identifier) IsBroadcast() bool { return i.kind == KindBroadcast }

// IsBootstrap reports whether this identifier is a bootstrap address.
func (i Identifier) IsBootstrap() bool { return i.kind == KindBootstrap }

// UUID returns the underlying UUID. Only valid when IsID() is true.
func (i Identifier) UUID() uuid.UUID { return i.id }

// BootstrapAddr returns the underlying address. Only valid when
// IsBootstrap() is true.
func (i Identifier) BootstrapAddr() string { return i.bootstrap }

// String renders the wire form of the identifier.
func (i Identifier) String() string {
	switch i.kind {
	case KindID:
		return i.id.String()
	case KindBroadcast:
		return broadcastLiteral
	case KindBootstrap:
		return i.bootstrap
	default:
		return ""
	}
}

// ErrEmptyIdentifier is returned when parsing an empty string.
var ErrEmptyIdentifier = errors.New("wire: identifier must not be empty")

// ParseIdentifier parses the wire form of an Identifier, applying the
// UUID-first, broadcast-second, bootstrap-last priority order.
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, ErrEmptyIdentifier
	}
	if id, err := uuid.Parse(s); err == nil {
		return NewID(id), nil
	}
	if s == broadcastLiteral {
		return Broadcast, nil
	}
	return NewBootstrap(s), nil
}

// Equal reports whether two identifiers denote the same wire value.
func (i Identifier) Equal(other Identifier) bool {
	return i.String() == other.String()
}

func (i Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func (i *Identifier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("wire: identifier must be a JSON string: %w", err)
	}
	parsed, err := ParseIdentifier(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
