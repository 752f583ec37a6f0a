package ports

// PayloadCipher is the reversible-encryption primitive protecting payload
// documents at rest. Encrypt returns an opaque ciphertext string; Decrypt
// returns a typed failure on malformed or tampered input.
type PayloadCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}
