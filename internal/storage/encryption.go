package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// sealedMagic starts every password-protected backup file.
const sealedMagic = "DFSEALED1"

const (
	saltLength   = 16
	keyLength    = 32 // AES-256
	paramsLength = 9  // time, memory, threads
	maxKeyTime   = 64
	maxKeyMemory = 1 << 21 // KiB
)

// ErrWrongPassword is returned when a sealed backup cannot be opened with
// the given password.
var ErrWrongPassword = errors.New("wrong password or corrupted backup")

// KeyParams tunes Argon2id key derivation.
type KeyParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKeyParams follows the RFC 9106 second recommended option.
var DefaultKeyParams = KeyParams{Time: 3, Memory: 64 * 1024, Threads: 4}

func (p KeyParams) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, p.Time)
	b = binary.BigEndian.AppendUint32(b, p.Memory)
	return append(b, p.Threads)
}

func readKeyParams(b []byte) KeyParams {
	return KeyParams{
		Time:    binary.BigEndian.Uint32(b[0:4]),
		Memory:  binary.BigEndian.Uint32(b[4:8]),
		Threads: b[8],
	}
}

func (p KeyParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, keyLength)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext with AES-256-GCM under a key derived from
// password. The output is the header (magic, key parameters, salt), the
// nonce, then the ciphertext; the header is authenticated as additional data.
func seal(plaintext []byte, password string, params KeyParams) ([]byte, error) {
	if password == "" {
		return nil, errors.New("backup password is empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(params.key(password, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	header := params.appendTo([]byte(sealedMagic))
	header = append(header, salt...)

	out := make([]byte, 0, len(header)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, header), nil
}

// unseal reverses seal.
func unseal(data []byte, password string) ([]byte, error) {
	if !isSealed(data) {
		return nil, errors.New("not a sealed backup")
	}
	headerLength := len(sealedMagic) + paramsLength + saltLength
	if len(data) < headerLength {
		return nil, ErrWrongPassword
	}
	header, rest := data[:headerLength], data[headerLength:]
	params := readKeyParams(header[len(sealedMagic):])
	salt := header[len(sealedMagic)+paramsLength:]
	if params.Time == 0 || params.Time > maxKeyTime || params.Threads == 0 || params.Memory > maxKeyMemory {
		return nil, ErrWrongPassword
	}

	gcm, err := newGCM(params.key(password, salt))
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrWrongPassword
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(sealedMagic))
}

// IsSealed reports whether the file at path is a password-protected backup.
func IsSealed(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(sealedMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return isSealed(header), nil
}
