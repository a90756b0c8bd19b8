// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/ctxutil"
)

// DefaultGoogleUserInfoURL is Google's OAuth2 v1 userinfo endpoint.
const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo?alt=json"

const (
	exchangeTimeout   = 10 * time.Second
	maxUserInfoBytes  = 1 << 20
	errSocialExchange = "Could not verify the social access token"
)

// GoogleExchanger reads the Google userinfo endpoint on behalf of the token owner.
type GoogleExchanger struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleExchanger creates an exchanger for userInfoURL. An empty URL
// selects [DefaultGoogleUserInfoURL]; a nil client selects a client with a
// bounded timeout.
func NewGoogleExchanger(userInfoURL string, httpClient *http.Client) *GoogleExchanger {
	if userInfoURL == "" {
		userInfoURL = DefaultGoogleUserInfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: exchangeTimeout}
	}
	return &GoogleExchanger{userInfoURL: userInfoURL, httpClient: httpClient}
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

/*
Exchange trades a Google access token for the owner's profile.

Description: The token is attached as a bearer credential through an oauth2
static token source.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - *SocialProfile
  - error: apperr.BadRequest on any exchange failure
*/
func (exchanger *GoogleExchanger) Exchange(context context.Context, accessToken string) (*SocialProfile, error) {
	if accessToken == "" {
		return nil, apperr.BadRequest(errSocialExchange)
	}

	// 1. The oauth2 transport wraps the configured base client
	baseContext := contextWithHTTPClient(context, exchanger.httpClient)
	client := oauth2.NewClient(baseContext, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	request, err := http.NewRequestWithContext(context, http.MethodGet, exchanger.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google_exchange_request_failed: %w", err)
	}

	// 2. Transport errors and non-2xx answers are the caller's problem
	response, err := client.Do(request)
	if err != nil {
		return nil, exchangeFailed(context, "google", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, exchangeFailed(context, "google", fmt.Errorf("userinfo status %d", response.StatusCode))
	}

	// 3. Map the v1 userinfo fields
	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(response.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return nil, exchangeFailed(context, "google", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, exchangeFailed(context, "google", errors.New("userinfo missing id or email"))
	}

	return &SocialProfile{
		ID:        info.ID,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}

// # Helpers

func contextWithHTTPClient(parent context.Context, client *http.Client) context.Context {
	return context.WithValue(parent, oauth2.HTTPClient, client)
}

// exchangeFailed logs the provider failure and returns the client-safe error.
func exchangeFailed(ctx context.Context, provider string, cause error) error {
	ctxutil.GetLogger(ctx).WarnContext(ctx, "social_exchange_failed",
		slog.String("provider", provider),
		slog.String("error", cause.Error()),
	)
	return apperr.BadRequest(errSocialExchange).WithCause(cause)
}
