// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// # Social Providers

// Provider tags an external identity provider. It is stored as the account's
// socialtype.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderOIDC   Provider = "oidc"
)

// SocialProfile is the subset of a provider profile the platform consumes.
type SocialProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// FullName joins the given and family names.
func (profile *SocialProfile) FullName() string {
	return strings.TrimSpace(profile.FirstName + " " + profile.LastName)
}

// ProfileExchanger trades a provider access token for the owner's profile.
//
// Implementations return apperr.BadRequest for every exchange failure: a
// rejected token, a non-2xx answer or a malformed body.
type ProfileExchanger interface {
	Exchange(context context.Context, accessToken string) (*SocialProfile, error)
}

// # Factory

// SocialFactory is the fixed (kind, provider) → exchanger mapping resolved
// at startup.
type SocialFactory struct {
	exchangers map[sec.Kind]map[Provider]ProfileExchanger
}

/*
NewSocialFactory binds the providers enabled for each principal kind to their
implementations.

Parameters:
  - available: map[Provider]ProfileExchanger (Every implementation that could be served)
  - enabled: map[sec.Kind][]string (Provider tags from configuration)

Returns:
  - *SocialFactory
  - error: A configured provider without an implementation, or an unknown kind
*/
func NewSocialFactory(available map[Provider]ProfileExchanger, enabled map[sec.Kind][]string) (*SocialFactory, error) {
	factory := &SocialFactory{exchangers: make(map[sec.Kind]map[Provider]ProfileExchanger)}

	for kind, providers := range enabled {
		if !kind.Valid() {
			return nil, fmt.Errorf("auth: unknown principal kind %q", kind)
		}

		bound := make(map[Provider]ProfileExchanger, len(providers))
		for _, raw := range providers {
			provider := Provider(strings.ToLower(strings.TrimSpace(raw)))
			if provider == "" {
				continue
			}

			exchanger, ok := available[provider]
			if !ok || exchanger == nil {
				return nil, fmt.Errorf("auth: social provider %q enabled for %s has no implementation", provider, kind)
			}
			bound[provider] = exchanger
		}
		factory.exchangers[kind] = bound
	}

	return factory, nil
}

// Exchanger returns the exchanger serving provider for kind, or
// apperr.BadRequest when the combination is not enabled.
func (factory *SocialFactory) Exchanger(kind sec.Kind, provider string) (ProfileExchanger, error) {
	exchanger, ok := factory.exchangers[kind][Provider(strings.ToLower(provider))]
	if !ok {
		return nil, apperr.BadRequest(fmt.Sprintf("Unsupported social provider %q", provider))
	}
	return exchanger, nil
}

// Providers lists the enabled provider tags of kind in lexical order.
func (factory *SocialFactory) Providers(kind sec.Kind) []string {
	providers := make([]string, 0, len(factory.exchangers[kind]))
	for provider := range factory.exchangers[kind] {
		providers = append(providers, string(provider))
	}
	sort.Strings(providers)
	return providers
}
