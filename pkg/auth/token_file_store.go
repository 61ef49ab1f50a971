package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000

	tokenFileExt   = ".token"
	sealedPrefix   = "inat1:"
	passphraseFile = ".passphrase"
)

// PassphraseEnv overrides the generated passphrase that seals token files
const PassphraseEnv = "INATSCRAPER_PASSPHRASE"

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// TokenFileStore keeps one sealed file per profile, <dir>/<profile>.token.
// Each file is a single line: a version prefix and the base64 of
// salt, AES-GCM nonce and ciphertext.
type TokenFileStore struct {
	dir        string
	passphrase string
	mu         sync.RWMutex
}

type sealedToken struct {
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

// NewTokenFileStore creates dir if needed and loads or generates the passphrase
func NewTokenFileStore(dir string) (*TokenFileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	passphrase, err := loadPassphrase(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &TokenFileStore{dir: dir, passphrase: passphrase}, nil
}

func (s *TokenFileStore) path(profile string) (string, error) {
	if !profilePattern.MatchString(profile) {
		return "", fmt.Errorf("%w: profile %q", ErrInvalidCredentials, profile)
	}
	return filepath.Join(s.dir, profile+tokenFileExt), nil
}

// Store seals the token and replaces the profile's file atomically
func (s *TokenFileStore) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	path, err := s.path(cred.Profile)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(sealedToken{Token: cred.Token, LastModified: cred.LastModified})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	line, err := seal(plain, s.passphrase)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(line+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename token file: %w", err)
	}
	return nil
}

// Retrieve opens the profile's file
func (s *TokenFileStore) Retrieve(profile string) (*Credential, error) {
	path, err := s.path(profile)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	content, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	plain, err := open(strings.TrimSpace(string(content)), s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("token file for %s: %w", profile, err)
	}
	var tok sealedToken
	if err := json.Unmarshal(plain, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &Credential{Profile: profile, Token: tok.Token, LastModified: tok.LastModified}, nil
}

// List opens every token file in the directory, sorted by profile.
// Files that no longer open with the current passphrase are skipped.
func (s *TokenFileStore) List() ([]*Credential, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+tokenFileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	creds := make([]*Credential, 0, len(matches))
	for _, m := range matches {
		profile := strings.TrimSuffix(filepath.Base(m), tokenFileExt)
		cred, err := s.Retrieve(profile)
		if err != nil {
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// Delete removes the profile's file
func (s *TokenFileStore) Delete(profile string) error {
	path, err := s.path(profile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// Exists reports whether the profile has a file that opens
func (s *TokenFileStore) Exists(profile string) bool {
	_, err := s.Retrieve(profile)
	return err == nil
}

// loadPassphrase prefers PassphraseEnv, then <dir>/.passphrase, generating
// and saving a random one on first use
func loadPassphrase(dir string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	path := filepath.Join(dir, passphraseFile)
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := base64.RawURLEncoding.EncodeToString(b)
	if err := os.WriteFile(path, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

// seal encrypts plain under a key derived from passphrase and a fresh salt
func seal(plain []byte, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append(salt, nonce...)
	out = gcm.Seal(out, nonce, plain, nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// open reverses seal
func open(line, passphrase string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(line, sealedPrefix)
	if !ok {
		return nil, errors.New("unrecognised token file format")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	if len(raw) < saltSize {
		return nil, errors.New("token file too short")
	}

	gcm, err := newGCM(passphrase, raw[:saltSize])
	if err != nil {
		return nil, err
	}
	rest := raw[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New("token file too short")
	}
	plain, err := gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}
	return plain, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
