package credstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const fileKVSaltSize = 16

var (
	// ErrNoSecret indicates a file backend was created without a secret.
	ErrNoSecret = errors.New("credstore: file backend requires a non-empty secret")

	// ErrCorruptFile indicates the credential file could not be decrypted,
	// typically after a secret change or on-disk tampering.
	ErrCorruptFile = errors.New("credstore: credential file is corrupt or secret changed")
)

// FileKV implements KV as a single AES-GCM encrypted JSON file. The
// encryption key is derived from an app-supplied secret with scrypt; the salt
// and nonce are stored alongside the ciphertext. This stands in for platform
// secure storage on targets that do not provide one.
type FileKV struct {
	mu     sync.Mutex
	path   string
	secret []byte
}

// NewFileKV creates a file backend at path. The file and its parent
// directory are created on first write.
func NewFileKV(path, secret string) (*FileKV, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &FileKV{path: path, secret: []byte(secret)}, nil
}

func (f *FileKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *FileKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *FileKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

func (f *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < fileKVSaltSize {
		return nil, ErrCorruptFile
	}

	salt := raw[:fileKVSaltSize]
	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}

	body := raw[fileKVSaltSize:]
	if len(body) < gcm.NonceSize() {
		return nil, ErrCorruptFile
	}
	plain, err := gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], nil)
	if err != nil {
		return nil, errors.Join(ErrCorruptFile, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, errors.Join(ErrCorruptFile, err)
	}
	return values, nil
}

func (f *FileKV) write(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return err
	}

	salt := make([]byte, fileKVSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	gcm, err := f.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}

	out := make([]byte, 0, fileKVSaltSize+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plain, nil)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	// Write-then-rename keeps a crash from truncating the credential file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileKV) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(f.secret, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
