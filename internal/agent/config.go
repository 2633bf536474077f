package agent

import (
	"log/slog"

	"github.com/ashureev/agent-relay/internal/config"
)

// NewFoundryClientWithConfig builds an authenticated Foundry client from
// configuration using the default Azure credential chain.
func NewFoundryClientWithConfig(cfg config.AgentConfig, logger *slog.Logger) (*FoundryClient, error) {
	cred, err := NewDefaultCredential(cfg.TenantID)
	if err != nil {
		return nil, err
	}
	httpClient := NewAuthenticatedHTTPClient(cred, CredentialConfig{
		Scope:   cfg.Scope,
		Timeout: cfg.HTTPTimeout,
	})
	return NewFoundryClient(FoundryConfig{
		Endpoint:   cfg.Endpoint,
		APIVersion: cfg.APIVersion,
	}, httpClient, logger)
}
