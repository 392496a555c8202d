// Package fieldcrypt is a local EncryptionBoundary using AES-256-GCM with
// versioned keys. Ciphertexts read "v<N>:<base64(nonce|sealed)>"; the
// highest version encrypts and every loaded version decrypts, so keys can
// be rotated without re-encrypting stored fields.
package fieldcrypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const keySize = 32

// ErrUnknownKeyVersion is returned for ciphertexts sealed with a key that
// is not loaded.
var ErrUnknownKeyVersion = errors.New("unknown key version")

type Keyring struct {
	active int
	aeads  map[int]cipher.AEAD
}

// Parse loads keys from "v1:base64,v2:base64".
func Parse(spec string) (*Keyring, error) {
	keys := make(map[int][]byte)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		version, encoded, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("key %q: expected v<N>:<base64>", part)
		}
		v, err := parseVersion(version)
		if err != nil {
			return nil, err
		}
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("key v%d: %w", v, err)
		}
		if _, dup := keys[v]; dup {
			return nil, fmt.Errorf("key v%d listed twice", v)
		}
		keys[v] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("no encryption keys configured")
	}
	return New(keys)
}

// Ephemeral returns a keyring with one random key. Fields sealed with it
// cannot be read after the process exits.
func Ephemeral() (*Keyring, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return New(map[int][]byte{1: key})
}

func New(keys map[int][]byte) (*Keyring, error) {
	k := &Keyring{aeads: make(map[int]cipher.AEAD, len(keys))}
	for v, key := range keys {
		if len(key) != keySize {
			return nil, fmt.Errorf("key v%d has length %d, need %d", v, len(key), keySize)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("key v%d: %w", v, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key v%d: %w", v, err)
		}
		k.aeads[v] = aead
		if v > k.active {
			k.active = v
		}
	}
	if len(k.aeads) == 0 {
		return nil, errors.New("no encryption keys configured")
	}
	return k, nil
}

// ActiveVersion is the key version new ciphertexts are sealed with.
func (k *Keyring) ActiveVersion() int {
	return k.active
}

func (k *Keyring) Encrypt(_ context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead := k.aeads[k.active]
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return "v" + strconv.Itoa(k.active) + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (k *Keyring) Decrypt(_ context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	version, payload, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", errors.New("ciphertext is not versioned")
	}
	v, err := parseVersion(version)
	if err != nil {
		return "", err
	}
	aead, ok := k.aeads[v]
	if !ok {
		return "", fmt.Errorf("%w: v%d", ErrUnknownKeyVersion, v)
	}
	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, body := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}

func parseVersion(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
	if err != nil || n <= 0 || !strings.HasPrefix(s, "v") {
		return 0, fmt.Errorf("invalid key version %q", s)
	}
	return n, nil
}
