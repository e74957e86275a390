package nodekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Is4096Bit(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	assert.Equal(t, KeyBits, kp.private.N.BitLen())
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	plaintext := []byte("the network is the message")
	ciphertext, err := kp.Encrypt(plaintext)
	require.NoError(t, err)

	decrypted, err := kp.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt_IsRandomized(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	plaintext := []byte("same plaintext twice")
	c1, err := kp.Encrypt(plaintext)
	require.NoError(t, err)
	c2, err := kp.Encrypt(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "OAEP must not produce identical ciphertexts for identical plaintexts")
}

func TestSignVerify_RoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	msg := []byte("envelope bytes to be signed")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.NoError(t, kp.Verify(msg, sig))
}

func TestVerify_RejectsTamperedMessage(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	sig, err := kp.Sign([]byte("original"))
	require.NoError(t, err)

	assert.Error(t, kp.Verify([]byte("tampered"), sig))
}

func TestVerify_CrossKeyIsolation(t *testing.T) {
	kp1, err := Generate()
	require.NoError(t, err)
	kp2, err := Generate()
	require.NoError(t, err)

	msg := []byte("signed by kp1")
	sig, err := kp1.Sign(msg)
	require.NoError(t, err)

	assert.Error(t, kp2.Verify(msg, sig), "a different key pair's public key must not verify another key's signature")
}

func TestPrivateKeyPEM_RoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	pemBytes, err := kp.PrivateKeyPEM()
	require.NoError(t, err)

	loaded, err := LoadPrivateKeyPEM(pemBytes)
	require.NoError(t, err)

	msg := []byte("round trip check")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	assert.NoError(t, loaded.Verify(msg, sig))
}

func TestPublicKeyBase64URL_RoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	encoded, err := kp.PublicKeyBase64URL()
	require.NoError(t, err)
	assert.NotContains(t, encoded, "=", "base64url encoding must have no padding")

	loaded, err := LoadPublicKeyBase64URL(encoded)
	require.NoError(t, err)
	assert.False(t, loaded.HasPrivate())

	msg := []byte("pinned key verification")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	assert.NoError(t, loaded.Verify(msg, sig))
}

func TestDecrypt_FailsWithoutPrivateKey(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	pub, err := kp.PublicKeyBase64URL()
	require.NoError(t, err)
	pubOnly, err := LoadPublicKeyBase64URL(pub)
	require.NoError(t, err)

	ciphertext, err := kp.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = pubOnly.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)
}
