// package enc provides interfaces for Content Encryption.
package enc

// Algorithm is an algorithm for encryption.
type Algorithm interface {
	// GenerateCEK generates a new random Content Encryption Key.
	GenerateCEK() ([]byte, error)

	// GenerateIV generates a new random Initialization Vector of IVSize bytes.
	GenerateIV() ([]byte, error)

	// Decrypt decrypts and verifies ciphertext.
	Decrypt(cek, iv, aad, ciphertext, authTag []byte) (plaintext []byte, err error)

	// Encrypt encrypts and signs plaintext.
	Encrypt(cek, iv, aad, plaintext []byte) (ciphertext, authTag []byte, err error)
}
