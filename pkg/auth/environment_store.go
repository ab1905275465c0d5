package auth

import (
	"os"
	"time"
)

const (
	envApifyToken        = "IGVISION_APIFY_TOKEN"
	envVisionCredentials = "IGVISION_VISION_CREDENTIALS"
	envGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// EnvironmentStore is a read-only CredentialStore over environment variables.
// It answers for any profile name.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve builds credentials from IGVISION_APIFY_TOKEN and
// IGVISION_VISION_CREDENTIALS, falling back to GOOGLE_APPLICATION_CREDENTIALS
func (e *EnvironmentStore) Retrieve(profile string) (*Credentials, error) {
	token := os.Getenv(envApifyToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	visionFile := os.Getenv(envVisionCredentials)
	if visionFile == "" {
		visionFile = os.Getenv(envGoogleCredentials)
	}
	if profile == "" {
		profile = DefaultProfile
	}

	return &Credentials{
		Profile:               profile,
		ApifyToken:            token,
		VisionCredentialsFile: visionFile,
		LastModified:          time.Now(),
	}, nil
}

// List returns the default profile if the environment is set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve(DefaultProfile)
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}
