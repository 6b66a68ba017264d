package credential

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Kind distinguishes the two credential variants. Exactly one is selected at
// startup, based on whether a tenant id is configured.
type Kind int

const (
	Default Kind = iota
	TenantScoped
)

func (k Kind) String() string {
	if k == TenantScoped {
		return "tenant-scoped"
	}
	return "default"
}

// Credential wraps an Azure CLI credential shared by every remote client for
// the duration of a run.
type Credential struct {
	kind  Kind
	token azcore.TokenCredential
}

// Resolve builds the credential: tenant-scoped when tenantID is non-empty,
// default otherwise.
func Resolve(tenantID string) (*Credential, error) {
	if tenantID != "" {
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: tenantID})
		if err != nil {
			return nil, fmt.Errorf("failed to build tenant-scoped credential: %w", err)
		}
		return &Credential{kind: TenantScoped, token: cred}, nil
	}

	cred, err := azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build default credential: %w", err)
	}
	return &Credential{kind: Default, token: cred}, nil
}

func (c *Credential) Kind() Kind {
	return c.kind
}

// Token fetches a bearer token for the given authorization scope.
func (c *Credential) Token(ctx context.Context, scope string) (string, error) {
	token, err := c.token.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", fmt.Errorf("failed to acquire token for scope %s: %w", scope, err)
	}
	return token.Token, nil
}

// Transport returns an http.RoundTripper that injects a bearer token for the
// given scope into every request, refreshing shortly before expiry.
func (c *Credential) Transport(scope string) *Transport {
	return &Transport{cred: c.token, scope: scope}
}

type Transport struct {
	cred  azcore.TokenCredential
	scope string
	Base  http.RoundTripper

	mu    sync.Mutex
	token azcore.AccessToken
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenFor(req.Context())
	if err != nil {
		return nil, err
	}

	authorized := req.Clone(req.Context())
	authorized.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(authorized)
}

func (t *Transport) CloseIdleConnections() {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if closer, ok := base.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

func (t *Transport) tokenFor(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token.Token != "" && time.Until(t.token.ExpiresOn) > 2*time.Minute {
		return t.token.Token, nil
	}

	token, err := t.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{t.scope}})
	if err != nil {
		return "", fmt.Errorf("failed to acquire token for scope %s: %w", t.scope, err)
	}
	t.token = token
	return token.Token, nil
}
