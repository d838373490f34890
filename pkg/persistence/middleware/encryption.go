package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// sealedPrefix marks a field value that was encrypted by this middleware.
const sealedPrefix = "enc:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.LeadStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the personal
// fields of a lead (contact name, email, address, notes) with AES-GCM.
// Phone stays in clear text so FindByPhone keeps working.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.LeadStore) ports.LeadStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

// ParseKey decodes a 32-byte key given as base64 or hex.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if k, err := hex.DecodeString(s); err == nil && len(k) == 32 {
		return k, nil
	}
	if k, err := base64.StdEncoding.DecodeString(s); err == nil && len(k) == 32 {
		return k, nil
	}
	return nil, errors.New("encryption key must be 32 bytes, base64 or hex encoded")
}

func sensitiveFields(l *domain.Lead) []*string {
	return []*string{&l.ContactName, &l.Email, &l.Address, &l.Notes}
}

func (m *encryptionMiddleware) seal(lead *domain.Lead) (*domain.Lead, error) {
	sealed := *lead
	for _, f := range sensitiveFields(&sealed) {
		if *f == "" {
			continue
		}
		ciphertext, err := encrypt([]byte(*f), m.config.ActiveKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt lead %s: %w", lead.ID, err)
		}
		*f = sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return &sealed, nil
}

// open decrypts lead in place. Values without the prefix are returned as
// stored, so encryption can be enabled on an existing store.
func (m *encryptionMiddleware) open(lead *domain.Lead) error {
	for _, f := range sensitiveFields(lead) {
		encoded, ok := strings.CutPrefix(*f, sealedPrefix)
		if !ok {
			continue
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("lead %s: failed to decode ciphertext base64: %w", lead.ID, err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return fmt.Errorf("lead %s: %w", lead.ID, err)
		}
		*f = string(plain)
	}
	return nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, lead *domain.Lead) error {
	sealed, err := m.seal(lead)
	if err != nil {
		return err
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) SaveBatch(ctx context.Context, leads []*domain.Lead) error {
	sealed := make([]*domain.Lead, len(leads))
	for i, l := range leads {
		s, err := m.seal(l)
		if err != nil {
			return err
		}
		sealed[i] = s
	}
	return m.next.SaveBatch(ctx, sealed)
}

func (m *encryptionMiddleware) Get(ctx context.Context, id string) (*domain.Lead, error) {
	lead, err := m.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.open(lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (m *encryptionMiddleware) FindByPhone(ctx context.Context, phone string) (*domain.Lead, error) {
	lead, err := m.next.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := m.open(lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]*domain.Lead, error) {
	leads, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		if err := m.open(l); err != nil {
			return nil, err
		}
	}
	return leads, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
