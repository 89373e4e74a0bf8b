package dataverse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource returns the bearer token source for cfg. A configured access
// token wins; otherwise the client-credentials flow is used against
// <authority>/<tenant>/oauth2/v2.0/token with the environment's .default
// scope. Tokens are cached and refreshed by the returned source.
func TokenSource(ctx context.Context, cfg config.DataverseConfig) (oauth2.TokenSource, error) {
	if cfg.AccessToken.IsSet() {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken.Value(),
			TokenType:   "Bearer",
		}), nil
	}

	if cfg.TenantID == "" || cfg.ClientID == "" || !cfg.ClientSecret.IsSet() {
		return nil, errors.New("access token or client credentials required")
	}
	if cfg.URL == "" {
		return nil, errors.New("dataverse url required for token scope")
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret.Value(),
		TokenURL:     tokenURL(cfg.Authority, cfg.TenantID),
		Scopes:       []string{strings.TrimRight(cfg.URL, "/") + "/.default"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cc.TokenSource(ctx), nil
}

func tokenURL(authority, tenant string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authority, "/"), tenant)
}
