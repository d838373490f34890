package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/aretw0/switchboard/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func testLead() *domain.Lead {
	return &domain.Lead{
		ID:          "LEAD-20260302-AAAA0001",
		ContactName: "Dana Reyes",
		Phone:       "+15551234567",
		Email:       "dana@example.com",
		Address:     "12 Elm St",
		City:        "Springfield",
		Status:      domain.StatusNew,
		Score:       domain.ScoreHot,
		Notes:       "wants a quote for mulching",
		CreatedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunLeadStoreContract(t, mw(memory.New()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	lead := testLead()
	require.NoError(t, secure.Save(ctx, lead))
	assert.Equal(t, "Dana Reyes", lead.ContactName, "Save must not modify the caller's lead")

	stored, err := underlying.Get(ctx, lead.ID)
	require.NoError(t, err)
	for _, v := range []string{stored.ContactName, stored.Email, stored.Address, stored.Notes} {
		assert.True(t, strings.HasPrefix(v, "enc:"), "expected sealed value, got %q", v)
	}
	assert.Equal(t, lead.Phone, stored.Phone)
	assert.Equal(t, lead.City, stored.City)

	loaded, err := secure.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead, loaded)

	byPhone, err := secure.FindByPhone(ctx, "(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, lead, byPhone)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	old := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, old.Save(ctx, testLead()))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	loaded, err := rotated.Get(ctx, testLead().ID)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", loaded.Email)

	withoutOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	_, err = withoutOld.Get(ctx, testLead().ID)
	assert.ErrorContains(t, err, "decryption failed")

	_, err = withoutOld.List(ctx)
	assert.Error(t, err)
}

func TestEncryptionMiddleware_PlainValuesPassThrough(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	require.NoError(t, underlying.Save(ctx, testLead()))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	leads, err := secure.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, testLead(), leads[0])
}

func TestNewEncryptionMiddleware_ShortKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	fromHex, err := middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromHex)

	fromBase64, err := middleware.ParseKey(" " + base64.StdEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, fromBase64)

	_, err = middleware.ParseKey("not-a-key")
	assert.Error(t, err)
	_, err = middleware.ParseKey(hex.EncodeToString(key[:16]))
	assert.Error(t, err)
}
