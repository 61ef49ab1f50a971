package auth

import (
	"os"
	"time"
)

// TokenEnv holds an API token supplied through the environment
const TokenEnv = "INATSCRAPER_API_TOKEN"

// EnvironmentStore implements CredentialStore over TokenEnv. It is read-only
// and answers for every profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token under the requested profile name
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile:      profile,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if the environment token is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv(TokenEnv) != ""
}
