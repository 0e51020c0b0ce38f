package gcp

import (
	"context"
	"fmt"
	"unicode/utf8"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretAccessor reads secret payloads from Secret Manager for one project.
type SecretAccessor struct {
	client    *secretmanager.Client
	projectID string
	version   string
}

// NewSecretAccessor creates a Secret Manager client using application default credentials.
// An empty version resolves to "latest".
func NewSecretAccessor(ctx context.Context, projectID, version string) (*SecretAccessor, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a secret manager client")
	}
	if version == "" {
		version = "latest"
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &SecretAccessor{client: client, projectID: projectID, version: version}, nil
}

// SecretVersionName builds the fully qualified resource name of a secret version.
func SecretVersionName(projectID, secretID, version string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, secretID, version)
}

// AccessSecret fetches the configured version of a secret and returns its payload as text.
func (a *SecretAccessor) AccessSecret(ctx context.Context, secretID string) (string, error) {
	name := SecretVersionName(a.projectID, secretID, a.version)
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return "", fmt.Errorf("secret version %s not found: %w", name, err)
		case codes.PermissionDenied:
			return "", fmt.Errorf("permission denied accessing %s: %w", name, err)
		}
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}

	data := resp.GetPayload().GetData()
	if !utf8.Valid(data) {
		return "", fmt.Errorf("secret %s payload is not valid UTF-8", name)
	}
	return string(data), nil
}

func (a *SecretAccessor) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
