package nodekey

import "errors"

// Error taxonomy mirrors original_source/secure_chat/src/crypto.rs's
// RsaUtilError variants (RsaError, IoError, Pkcs8Error, SpkiError), restated
// as wrapped sentinels so callers can errors.Is against a specific failure
// mode.
var (
	ErrKeyGeneration = errors.New("nodekey: key generation failed")
	ErrEncrypt       = errors.New("nodekey: OAEP encryption failed")
	ErrDecrypt       = errors.New("nodekey: OAEP decryption failed")
	ErrSign          = errors.New("nodekey: PSS signing failed")
	ErrVerify        = errors.New("nodekey: PSS signature verification failed")
	ErrPEMDecode     = errors.New("nodekey: PEM decode failed")
	ErrKeyParse      = errors.New("nodekey: key parse failed")
)
