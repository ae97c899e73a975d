package domain

// Algorithm represents the AEAD algorithm used to encrypt OAuth tokens.
//
// Both supported algorithms provide Authenticated Encryption with Associated
// Data with 256-bit keys, 12-byte nonces, and 16-byte authentication tags.
// AESGCM is the default; ChaCha20 is offered for hosts without AES-NI.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the required key length in bytes for both algorithms.
	KeySize = 32

	// NonceSize is the nonce length in bytes for both algorithms.
	NonceSize = 12

	// TagSize is the authentication tag length appended to every ciphertext.
	TagSize = 16
)

// Valid reports whether the algorithm is one of the supported AEAD algorithms.
func (a Algorithm) Valid() bool {
	return a == AESGCM || a == ChaCha20
}
