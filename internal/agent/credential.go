package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
)

const tokenRefreshWindow = 2 * time.Minute

// CredentialConfig selects how the relay authenticates to the agent service.
type CredentialConfig struct {
	Scope   string
	Timeout time.Duration
}

// NewDefaultCredential resolves credentials from the environment, managed
// identity, or a developer login, in that order.
func NewDefaultCredential(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	return cred, nil
}

type credentialTokenSource struct {
	cred  azcore.TokenCredential
	scope string
}

func (s *credentialTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cred.GetToken(context.Background(), policy.TokenRequestOptions{
		Scopes: []string{s.scope},
	})
	if err != nil {
		return nil, fmt.Errorf("get token for %s: %w", s.scope, err)
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}

// TokenSource adapts an Azure credential to an oauth2.TokenSource that caches
// tokens until shortly before they expire.
func TokenSource(cred azcore.TokenCredential, scope string) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, &credentialTokenSource{cred: cred, scope: scope}, tokenRefreshWindow)
}

// NewAuthenticatedHTTPClient returns an http.Client that attaches a bearer
// token for cfg.Scope to every request.
func NewAuthenticatedHTTPClient(cred azcore.TokenCredential, cfg CredentialConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: TokenSource(cred, cfg.Scope),
			Base:   http.DefaultTransport,
		},
	}
}
