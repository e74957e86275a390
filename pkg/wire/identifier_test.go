package wire

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier_PriorityOrder(t *testing.T) {
	id := uuid.New()

	parsed, err := ParseIdentifier(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.IsID())
	assert.Equal(t, id, parsed.UUID())

	parsed, err = ParseIdentifier("*")
	require.NoError(t, err)
	assert.True(t, parsed.IsBroadcast())

	parsed, err = ParseIdentifier("relay.example.com:8080")
	require.NoError(t, err)
	assert.True(t, parsed.IsBootstrap())
	assert.Equal(t, "relay.example.com:8080", parsed.BootstrapAddr())
}

func TestParseIdentifier_Empty(t *testing.T) {
	_, err := ParseIdentifier("")
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestIdentifier_JSONRoundTrip(t *testing.T) {
	cases := []Identifier{
		NewRandomID(),
		Broadcast,
		NewBootstrap("seed.example.com:9090"),
	}

	for _, c := range cases {
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var out Identifier
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, c.Equal(out))
	}
}

func TestIdentifier_StringIsWireForm(t *testing.T) {
	assert.Equal(t, "*", Broadcast.String())
	assert.Equal(t, "host:1234", NewBootstrap("host:1234").String())
}
