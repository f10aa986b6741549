// Package auth obtains a GitHub token through the OAuth device flow and keeps it
// in the OS keyring for later runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/mscno/provisioner/pkg/oskeyring"
)

// Scopes cover repository, team, secret and ruleset administration.
var Scopes = []string{"repo", "admin:org", "delete_repo"}

// DeviceLogin runs the device flow for an OAuth app.
type DeviceLogin struct {
	ClientID string
	// Endpoint defaults to github.com. Use EnterpriseEndpoint for GHES.
	Endpoint oauth2.Endpoint
	Tokens   *oskeyring.Tokens
	// Client checks the token once issued. Nil skips the check.
	Client func(token string) (*github.Client, error)
	Out    io.Writer
}

// EnterpriseEndpoint returns the device and token URLs of a GHES host, given its
// web address such as https://github.example.com.
func EnterpriseEndpoint(webURL string) oauth2.Endpoint {
	base := strings.TrimSuffix(webURL, "/")
	return oauth2.Endpoint{
		AuthURL:       base + "/login/oauth/authorize",
		DeviceAuthURL: base + "/login/device/code",
		TokenURL:      base + "/login/oauth/access_token",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
}

// Login prompts the user on Out, waits for approval and stores the token. It
// returns the login of the authenticated user when Client is set.
func (d *DeviceLogin) Login(ctx context.Context) (string, error) {
	if d.ClientID == "" {
		return "", errors.New("GitHub OAuth client id is required for device login")
	}
	endpoint := d.Endpoint
	if endpoint.DeviceAuthURL == "" {
		endpoint = oauthgithub.Endpoint
	}
	conf := &oauth2.Config{ClientID: d.ClientID, Scopes: Scopes, Endpoint: endpoint}

	code, err := conf.DeviceAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("request device code: %w", err)
	}
	fmt.Fprintf(d.Out, "Visit %s and enter the code: %s\n", code.VerificationURI, code.UserCode)

	token, err := conf.DeviceAccessToken(ctx, code)
	if err != nil {
		return "", fmt.Errorf("wait for access token: %w", err)
	}

	var login string
	if d.Client != nil {
		client, err := d.Client(token.AccessToken)
		if err != nil {
			return "", err
		}
		user, _, err := client.Users.Get(ctx, "")
		if err != nil {
			return "", fmt.Errorf("verify token: %w", err)
		}
		login = user.GetLogin()
	}

	if err := d.Tokens.Set(oskeyring.AccountGitHub, token.AccessToken); err != nil {
		return "", fmt.Errorf("store token in keyring: %w", err)
	}
	return login, nil
}
