package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// EmailFromToken returns the email claim of the token's id_token, or "".
// The id_token signature is not verified; the email is only a default
// username hint, never an authorization decision.
func EmailFromToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return ""
	}
	return EmailFromIDToken(raw)
}

// EmailFromIDToken extracts the email claim from a raw JWT, or "".
func EmailFromIDToken(raw string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

type userinfo struct {
	Email string `json:"email"`
}

// userinfoEmail queries the userinfo endpoint authorized by ts.
// Any failure yields "".
func (r *Resolver) userinfoEmail(ctx context.Context, ts oauth2.TokenSource) string {
	email, err := fetchUserinfoEmail(ctx, r.cfg.HTTPClient, r.cfg.UserinfoURL, r.cfg.Timeout, ts)
	if err != nil {
		return ""
	}
	return email
}

func fetchUserinfoEmail(ctx context.Context, base *http.Client, url string, timeout time.Duration, ts oauth2.TokenSource) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo: HTTP %d", resp.StatusCode)
	}

	var info userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}

	return info.Email, nil
}
