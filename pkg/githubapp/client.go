// Package githubapp talks to the source host. It builds authenticated go-github
// clients and exposes the repository, team, secret, topic, ruleset and
// membership calls the orchestrators need.
package githubapp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	ghinstallation "github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
)

const publicAPI = "https://api.github.com"

// ErrNoCredentials is returned when neither a token nor app credentials are set.
var ErrNoCredentials = errors.New("github: no token or app credentials configured")

// Credentials selects how requests are authenticated. App credentials win over a
// token when both are present.
type Credentials struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKey     []byte // PEM-encoded app private key
}

func (c Credentials) isApp() bool {
	return c.AppID != 0 && c.InstallationID != 0 && len(c.PrivateKey) > 0
}

// NewHTTPClient wraps base with the configured authentication. base carries the
// pinned TLS settings and timeout; a nil base uses a default client.
func NewHTTPClient(ctx context.Context, base *http.Client, apiURL string, creds Credentials) (*http.Client, error) {
	if base == nil {
		base = &http.Client{Transport: http.DefaultTransport, Timeout: 30 * time.Second}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	switch {
	case creds.isApp():
		tr, err := ghinstallation.New(transport, creds.AppID, creds.InstallationID, creds.PrivateKey)
		if err != nil {
			return nil, err
		}
		if isEnterprise(apiURL) {
			tr.BaseURL = strings.TrimSuffix(apiURL, "/")
		}
		return &http.Client{Transport: tr, Timeout: base.Timeout}, nil
	case creds.Token != "":
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token}))
		hc.Timeout = base.Timeout
		return hc, nil
	default:
		return nil, ErrNoCredentials
	}
}

// NewClient returns a go-github client for apiURL. An empty apiURL or the public
// API address gives a github.com client; anything else is treated as Enterprise.
func NewClient(httpClient *http.Client, apiURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if !isEnterprise(apiURL) {
		return client, nil
	}
	return client.WithEnterpriseURLs(apiURL, apiURL)
}

func isEnterprise(apiURL string) bool {
	u := strings.TrimSuffix(apiURL, "/")
	return u != "" && u != publicAPI
}
