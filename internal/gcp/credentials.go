package gcp

import (
	"encoding/json"
	"fmt"
)

// ServiceAccountKey is the subset of a service account key file we check before
// building a client. The raw JSON is still what the client library consumes.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccountKey decodes a service account key and checks the fields
// the storage client needs to sign requests.
func ParseServiceAccountKey(data []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to decode service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing client_email or private_key")
	}
	if key.Type != "" && key.Type != "service_account" {
		return nil, fmt.Errorf("unsupported credential type %q", key.Type)
	}
	return &key, nil
}
