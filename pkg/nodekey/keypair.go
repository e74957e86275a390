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

// Package nodekey implements the node's RSA-4096 identity: OAEP encryption
// for payload confidentiality and RSASSA-PSS signing for envelope
// authenticity, restated from original_source/secure_chat/src/crypto.rs in
// the constructor/exporter idiom of the teacher's crypto/keys and
// pkg/agent/crypto/formats packages.
package nodekey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

const KeyBits = 4096

// KeyPair bundles an RSA-4096 private/public pair used for both OAEP
// encryption and PSS signing, matching RsaUtil's dual-purpose key.
type KeyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// Generate creates a fresh RSA-4096 key pair.
func Generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return &KeyPair{private: priv, public: &priv.PublicKey}, nil
}

// PublicOnly wraps a standalone public key, e.g. for a pinned peer.
func PublicOnly(pub *rsa.PublicKey) *KeyPair {
	return &KeyPair{public: pub}
}

// Public returns the underlying *rsa.PublicKey.
func (k *KeyPair) Public() *rsa.PublicKey { return k.public }

// HasPrivate reports whether this KeyPair can sign/decrypt.
func (k *KeyPair) HasPrivate() bool { return k.private != nil }

// Encrypt performs RSA-OAEP-SHA256 encryption against this key's public key.
func (k *KeyPair) Encrypt(plaintext []byte) ([]byte, error) {
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, k.public, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return ciphertext, nil
}

// Decrypt performs RSA-OAEP-SHA256 decryption with this key's private key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.private == nil {
		return nil, fmt.Errorf("%w: no private key loaded", ErrDecrypt)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.private, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// Sign produces a blinded RSASSA-PSS-SHA256 signature over msg, encoded as
// standard base64 without padding (matching RsaUtil's convention).
func (k *KeyPair) Sign(msg []byte) (string, error) {
	if k.private == nil {
		return "", fmt.Errorf("%w: no private key loaded", ErrSign)
	}
	digest := sha256.Sum256(msg)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
	sig, err := rsa.SignPSS(rand.Reader, k.private, crypto.SHA256, digest[:], opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSign, err)
	}
	return base64.RawStdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 (no padding) RSASSA-PSS-SHA256 signature over msg
// against this key's public key.
func (k *KeyPair) Verify(msg []byte, sigB64 string) error {
	sig, err := base64.RawStdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 signature: %v", ErrVerify, err)
	}
	digest := sha256.Sum256(msg)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
	if err := rsa.VerifyPSS(k.public, crypto.SHA256, digest[:], sig, opts); err != nil {
		return fmt.Errorf("%w: %v", ErrVerify, err)
	}
	return nil
}

// PrivateKeyPEM encodes the private key as a PKCS#8 PEM block.
func (k *KeyPair) PrivateKeyPEM() ([]byte, error) {
	if k.private == nil {
		return nil, fmt.Errorf("%w: no private key loaded", ErrKeyParse)
	}
	der, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// PublicKeyPEM encodes the public key as an SPKI PEM block.
func (k *KeyPair) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// PublicKeyBase64URL returns the base64url-no-padding encoding of the SPKI
// DER bytes — the compact wire format used to pin an introducer's key in
// node configuration and in SERVER_WELCOME/SERVER_ANNOUNCE payloads.
func (k *KeyPair) PublicKeyBase64URL() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	return base64.RawURLEncoding.EncodeToString(der), nil
}

// LoadPrivateKeyPEM parses a PKCS#8 PEM-encoded RSA private key.
func LoadPrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrPEMDecode)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", ErrKeyParse)
	}
	return &KeyPair{private: rsaKey, public: &rsaKey.PublicKey}, nil
}

// LoadPublicKeyPEM parses an SPKI PEM-encoded RSA public key.
func LoadPublicKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrPEMDecode)
	}
	return parsePublicDER(block.Bytes)
}

// LoadPublicKeyBase64URL parses the compact base64url-no-padding SPKI DER
// encoding produced by PublicKeyBase64URL.
func LoadPublicKeyBase64URL(s string) (*KeyPair, error) {
	der, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64url: %v", ErrKeyParse, err)
	}
	return parsePublicDER(der)
}

func parsePublicDER(der []byte) (*KeyPair, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrKeyParse)
	}
	return PublicOnly(rsaPub), nil
}
