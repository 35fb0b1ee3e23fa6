// Package securekv encrypts values of an underlying kv.Store with XChaCha20-Poly1305.
// The key is derived from a passphrase with Argon2id and a random salt kept in the
// underlying store.
package securekv

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion byte = 1

	reservedPrefix = "__securekv_"
	saltKey        = reservedPrefix + "salt__"
	checkKey       = reservedPrefix + "check__"
	checkValue     = "securekv"
)

var (
	ErrWrongPassphrase = errors.New("wrong storage passphrase")
	ErrCorrupt         = errors.New("encrypted value is corrupt")
	ErrReservedKey     = errors.New("key is reserved")
)

// Params tunes the Argon2id key derivation.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

var DefaultParams = Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
}

type Option func(*options)

type options struct {
	params Params
}

// WithParams overrides the key derivation cost (tests use a cheap setting).
func WithParams(p Params) Option {
	return func(o *options) {
		o.params = p
	}
}

// Store is a kv.Store whose values are encrypted at rest.
type Store struct {
	inner kv.Store
	aead  cipher.AEAD
}

var _ kv.Store = (*Store)(nil)

// New derives the encryption key and checks it against the marker written on first use,
// returning ErrWrongPassphrase when it does not match.
func New(ctx context.Context, inner kv.Store, passphrase string, opts ...Option) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("[securekv New] passphrase is required")
	}
	o := options{params: DefaultParams}
	for _, opt := range opts {
		opt(&o)
	}

	salt, err := loadOrCreateSalt(ctx, inner, o.params.SaltLength)
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(passphrase), salt, o.params.Iterations, o.params.Memory, o.params.Parallelism, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[securekv New] failed to create cipher: %w", err)
	}

	s := &Store{inner: inner, aead: aead}
	if err := s.verify(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func loadOrCreateSalt(ctx context.Context, inner kv.Store, length uint32) ([]byte, error) {
	salt, err := inner.Get(ctx, saltKey)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("[securekv] failed to read salt: %w", err)
	}

	salt = make([]byte, length)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("[securekv] failed to generate salt: %w", err)
	}
	if err := inner.Set(ctx, saltKey, salt); err != nil {
		return nil, fmt.Errorf("[securekv] failed to store salt: %w", err)
	}
	return salt, nil
}

func (s *Store) verify(ctx context.Context) error {
	sealed, err := s.inner.Get(ctx, checkKey)
	if errors.Is(err, kv.ErrNotFound) {
		return s.inner.Set(ctx, checkKey, s.seal(checkKey, []byte(checkValue)))
	}
	if err != nil {
		return fmt.Errorf("[securekv] failed to read check value: %w", err)
	}
	plain, err := s.open(checkKey, sealed)
	if err != nil || string(plain) != checkValue {
		return ErrWrongPassphrase
	}
	return nil
}

// seal returns version || nonce || ciphertext. The key name is bound as additional data
// so a value cannot be replayed under another key.
func (s *Store) seal(key string, plain []byte) []byte {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		panic(fmt.Sprintf("securekv: crypto/rand failed: %v", err))
	}
	out := make([]byte, 0, 1+len(nonce)+len(plain)+s.aead.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plain, []byte(key))
}

func (s *Store) open(key string, sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < 1+nonceSize+s.aead.Overhead() || sealed[0] != envelopeVersion {
		return nil, ErrCorrupt
	}
	nonce := sealed[1 : 1+nonceSize]
	plain, err := s.aead.Open(nil, nonce, sealed[1+nonceSize:], []byte(key))
	if err != nil {
		return nil, ErrCorrupt
	}
	return plain, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, reservedPrefix) {
		return nil, ErrReservedKey
	}
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("[securekv Get] %s: %w", key, err)
	}
	return plain, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, reservedPrefix) {
		return ErrReservedKey
	}
	return s.inner.Set(ctx, key, s.seal(key, value))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if strings.HasPrefix(key, reservedPrefix) {
		return ErrReservedKey
	}
	return s.inner.Delete(ctx, key)
}
