// Package secrets resolves sensitive configuration values (provider API
// keys) from GCP Secret Manager, for deployments where keys are not kept
// in local config files.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Manager wraps the GCP Secret Manager client.
type Manager struct {
	client    *secretmanager.Client
	projectID string
}

// Fetcher defines the interface for fetching secrets.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
	Close() error
}

// NewManager creates a Secret Manager client. The GCP project is taken
// from the usual environment variables; short secret names cannot be
// resolved without one.
func NewManager(ctx context.Context, opts ...option.ClientOption) (*Manager, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &Manager{
		client:    client,
		projectID: projectFromEnv(),
	}, nil
}

// projectFromEnv looks up the GCP project ID in the conventional
// environment variables.
func projectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// Fetch retrieves a secret value. The ref can be a full resource path
// (projects/P/secrets/S[/versions/V]) or a bare secret name, which is
// expanded against the environment's project at the latest version.
func (m *Manager) Fetch(ctx context.Context, ref string) (string, error) {
	name, err := m.normalize(ref)
	if err != nil {
		return "", err
	}

	result, err := m.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

// normalize expands a secret reference to a full versioned resource path.
func (m *Manager) normalize(ref string) (string, error) {
	if strings.HasPrefix(ref, "projects/") {
		if strings.Contains(ref, "/versions/") {
			return ref, nil
		}
		if strings.Contains(ref, "/secrets/") {
			return ref + "/versions/latest", nil
		}
		return "", fmt.Errorf("malformed secret reference %q", ref)
	}
	if m.projectID == "" {
		return "", fmt.Errorf("secret %q needs a project: set GOOGLE_CLOUD_PROJECT or use a full resource path", ref)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", m.projectID, path.Base(ref)), nil
}

// Close closes the underlying client.
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
