package config

import (
	"fmt"
	"sort"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Provider holds the OAuth endpoints used to log in and to look up the
// logged-in user's email.
type Provider struct {
	Endpoint    oauth2.Endpoint
	UserinfoURL string
	Scopes      []string
}

// Providers maps provider names to their endpoints
var Providers = map[string]Provider{
	"google": {
		Endpoint:    google.Endpoint,
		UserinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes:      []string{"openid", "email"},
	},
}

// DefaultProvider is used when the config names none
const DefaultProvider = "google"

// GetProvider returns the endpoints for the named provider
func GetProvider(name string) (Provider, error) {
	p, ok := Providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// ValidProviders returns a sorted list of provider names
func ValidProviders() []string {
	names := make([]string, 0, len(Providers))
	for name := range Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
