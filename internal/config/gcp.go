package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type serviceAccount struct {
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ProjectID    string `json:"project_id"`
	Type         string `json:"type"`
}

// Credentials assembles the service account JSON Firebase expects. Escaped
// newlines in the private key are expanded.
func (g GCPConfig) Credentials() ([]byte, error) {
	data, err := json.Marshal(serviceAccount{
		ClientEmail:  g.ClientEmail,
		ClientID:     g.ClientID,
		PrivateKeyID: g.PrivateKeyID,
		PrivateKey:   strings.ReplaceAll(g.PrivateKey, "\\n", "\n"),
		ProjectID:    g.ProjectID,
		Type:         "service_account",
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling json %w", err)
	}

	return data, nil
}
