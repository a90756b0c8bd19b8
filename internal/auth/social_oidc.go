// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/taibuivan/stella/internal/platform/apperr"
)

// OIDCExchanger reads the userinfo endpoint of any OpenID Connect issuer,
// discovered from its well-known configuration.
type OIDCExchanger struct {
	provider   *oidc.Provider
	httpClient *http.Client
}

// NewOIDCExchanger runs discovery against issuerURL. It is called once at
// startup; a nil client selects a client with a bounded timeout.
func NewOIDCExchanger(ctx context.Context, issuerURL string, httpClient *http.Client) (*OIDCExchanger, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: exchangeTimeout}
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), issuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc discovery for %s failed: %w", issuerURL, err)
	}

	return &OIDCExchanger{provider: provider, httpClient: httpClient}, nil
}

type oidcNameClaims struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Exchange trades an OIDC access token for the owner's profile using the
// issuer's userinfo endpoint. Failures are apperr.BadRequest.
func (exchanger *OIDCExchanger) Exchange(ctx context.Context, accessToken string) (*SocialProfile, error) {
	if accessToken == "" {
		return nil, apperr.BadRequest(errSocialExchange)
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	info, err := exchanger.provider.UserInfo(oidc.ClientContext(ctx, exchanger.httpClient), tokenSource)
	if err != nil {
		return nil, exchangeFailed(ctx, "oidc", err)
	}
	if info.Subject == "" || info.Email == "" {
		return nil, exchangeFailed(ctx, "oidc", errors.New("userinfo missing sub or email"))
	}

	var names oidcNameClaims
	if err := info.Claims(&names); err != nil {
		return nil, exchangeFailed(ctx, "oidc", err)
	}

	return &SocialProfile{
		ID:        info.Subject,
		Email:     info.Email,
		FirstName: names.GivenName,
		LastName:  names.FamilyName,
	}, nil
}
