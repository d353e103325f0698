package credentials

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltLength    = 16
	argonTime     = 1
	argonMemoryKB = 64 * 1024
	argonThreads  = 4
)

type sealedBox struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// boxCipher seals the credential map with XChaCha20-Poly1305. A fresh salt and
// nonce are drawn on every seal, so the key is derived per call.
type boxCipher struct {
	passphrase []byte
}

func newBoxCipher(passphrase string) *boxCipher {
	return &boxCipher{passphrase: []byte(passphrase)}
}

func (c *boxCipher) key(salt []byte) []byte {
	return argon2.IDKey(c.passphrase, salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
}

func (c *boxCipher) seal(plain []byte) (*sealedBox, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(c.key(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return &sealedBox{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plain, salt),
	}, nil
}

func (c *boxCipher) open(box *sealedBox) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key(box.Salt))
	if err != nil {
		return nil, err
	}
	if len(box.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("bad nonce length %d", len(box.Nonce))
	}
	return aead.Open(nil, box.Nonce, box.Ciphertext, box.Salt)
}
