package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	mock := NewMockStore()
	manager := newMockManager(mock)

	cred := &Credential{Profile: "field", Token: "  eyJhbGciOiJIUzUxMiJ9.token  "}
	require.NoError(t, manager.Store(cred))
	assert.False(t, cred.LastModified.IsZero())

	got, err := manager.Retrieve("field")
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJIUzUxMiJ9.token", got.Token)
	assert.Equal(t, "eyJhbGciOiJIUzUxMiJ9.token", manager.Token("field"))

	list, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, manager.Delete("field"))
	assert.Zero(t, mock.Count())

	_, err = manager.Retrieve("field")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Empty(t, manager.Token("field"))
}

func TestManagerDefaultsProfile(t *testing.T) {
	mock := NewMockStore()
	manager := newMockManager(mock)

	require.NoError(t, manager.Store(&Credential{Token: "abc"}))
	assert.True(t, mock.Exists(DefaultProfile))
	assert.Equal(t, "abc", manager.Token(""))
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	manager := newMockManager(NewMockStore())

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
	assert.Error(t, manager.Store(&Credential{Profile: "p", Token: "   "}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	broken.RetrieveError = errors.New("keychain locked")
	working := NewMockStore()
	manager := newMockManager(broken, working)

	require.NoError(t, manager.Store(&Credential{Profile: "p", Token: "tok"}))
	assert.Zero(t, broken.Count())
	assert.Equal(t, 1, working.Count())
	assert.Equal(t, "tok", manager.Token("p"))
}

func TestManagerStoreFailsWhenAllStoresFail(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("disk full")
	manager := newMockManager(broken)

	err := manager.Store(&Credential{Profile: "p", Token: "tok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestManagerDeleteMissing(t *testing.T) {
	manager := newMockManager(NewMockStore())
	assert.ErrorIs(t, manager.Delete("ghost"), ErrCredentialsNotFound)
}

func TestTokenFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	dir := t.TempDir()

	store, err := NewTokenFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Profile: "field", Token: "secret-token-value"}))
	require.NoError(t, store.Store(&Credential{Profile: "lab", Token: "other-token"}))
	assert.True(t, store.Exists("field"))

	got, err := store.Retrieve("field")
	require.NoError(t, err)
	assert.Equal(t, "field", got.Profile)
	assert.Equal(t, "secret-token-value", got.Token)

	raw, err := os.ReadFile(filepath.Join(dir, "field.token"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte(sealedPrefix)))
	assert.False(t, bytes.Contains(raw, []byte("secret-token-value")), "file holds plaintext token")

	reopened, err := NewTokenFileStore(dir)
	require.NoError(t, err)
	list, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "field", list[0].Profile)
	assert.Equal(t, "lab", list[1].Profile)

	// Deleting one profile leaves the other untouched
	require.NoError(t, reopened.Delete("field"))
	assert.False(t, reopened.Exists("field"))
	assert.NoFileExists(t, filepath.Join(dir, "field.token"))
	assert.Equal(t, "other-token", mustRetrieve(t, reopened, "lab").Token)
	assert.ErrorIs(t, reopened.Delete("field"), ErrCredentialsNotFound)
}

func mustRetrieve(t *testing.T, s CredentialStore, profile string) *Credential {
	t.Helper()
	cred, err := s.Retrieve(profile)
	require.NoError(t, err)
	return cred
}

func TestTokenFileStoreRejectsUnsafeProfiles(t *testing.T) {
	t.Setenv(PassphraseEnv, "pass")
	store, err := NewTokenFileStore(t.TempDir())
	require.NoError(t, err)

	for _, profile := range []string{"", "../escape", "a/b", "has space"} {
		assert.ErrorIs(t, store.Store(&Credential{Profile: profile, Token: "t"}), ErrInvalidCredentials, profile)
	}
	_, err = store.Retrieve("../escape")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "first")
	store, err := NewTokenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "p", Token: "tok"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewTokenFileStore(dir)
	require.NoError(t, err)

	_, err = other.Retrieve("p")
	assert.ErrorContains(t, err, "decrypt")
	assert.False(t, other.Exists("p"))
	list, err := other.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTokenFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewTokenFileStore(dir)
	require.NoError(t, err)

	pass, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, pass)

	// A second store in the same directory reuses it
	require.NoError(t, store.Store(&Credential{Profile: "p", Token: "tok"}))
	again, err := NewTokenFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "tok", mustRetrieve(t, again, "p").Token)
}

func TestManagerInDirWithoutKeyring(t *testing.T) {
	t.Setenv(PassphraseEnv, "pass")
	t.Setenv(TokenEnv, "")

	dir := t.TempDir()
	manager, err := NewManagerInDir(dir, false)
	require.NoError(t, err)

	require.NoError(t, manager.Store(&Credential{Profile: "p", Token: "file-token"}))
	assert.Equal(t, "file-token", manager.Token("p"))
	assert.FileExists(t, filepath.Join(dir, "tokens", "p.token"))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnv, "")
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(""))

	t.Setenv(TokenEnv, "env-token")
	cred, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, cred.Profile)
	assert.Equal(t, "env-token", cred.Token)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, store.Store(cred), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(DefaultProfile), ErrStoreUnavailable)
}

func TestSanitize(t *testing.T) {
	cred := &Credential{Profile: "p", Token: "abcdefghijklmnop"}
	masked := Sanitize(cred)

	assert.Equal(t, "p", masked.Profile)
	assert.Equal(t, "abcd...mnop", masked.Token)
	assert.Equal(t, "********", Sanitize(&Credential{Token: "short"}).Token)
	assert.Nil(t, Sanitize(nil))
}

func TestShowTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowTokenGuide(&buf)
	assert.Contains(t, buf.String(), TokenURL)
}
