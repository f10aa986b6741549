package commands

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/go-github/v71/github"

	"github.com/mscno/provisioner/pkg/auth"
	"github.com/mscno/provisioner/pkg/githubapp"
	"github.com/mscno/provisioner/pkg/oskeyring"
)

type AuthCmd struct {
	Login    AuthLoginCmd    `cmd:"" help:"Obtain a GitHub token through the device flow."`
	SetToken AuthSetTokenCmd `cmd:"" name:"set-token" help:"Store a token in the OS keyring."`
	Logout   AuthLogoutCmd   `cmd:"" help:"Remove stored tokens from the OS keyring."`
}

type AuthSetTokenCmd struct {
	Service string `arg:"" help:"Which token to store." enum:"github,sonarqube"`
	Token   string `help:"Token value. Read from stdin when omitted."`
}

func (c *AuthSetTokenCmd) Run(ctx *cliCtx) error {
	token := c.Token
	if token == "" {
		var err error
		if token, err = readToken(os.Stdin); err != nil {
			return err
		}
	}
	if err := ctx.Tokens.Set(c.Service, token); err != nil {
		return fmt.Errorf("store %s token: %w", c.Service, err)
	}
	ctx.Logger.Info("token stored", "service", c.Service)
	return nil
}

type AuthLoginCmd struct {
	ClientID string `help:"OAuth app client id." required:"" env:"GITHUB_OAUTH_CLIENT_ID"`
	WebURL   string `help:"GitHub Enterprise web address. github.com when empty." env:"GITHUB_WEB_URL"`
	APIURL   string `help:"GitHub API address used to verify the token." env:"GITHUB_API_URL"`
}

func (c *AuthLoginCmd) Run(ctx *cliCtx) error {
	d := &auth.DeviceLogin{
		ClientID: c.ClientID,
		Tokens:   ctx.Tokens,
		Out:      ctx.Stdout,
		Client: func(token string) (*github.Client, error) {
			client, err := githubapp.NewClient(http.DefaultClient, c.APIURL)
			if err != nil {
				return nil, err
			}
			return client.WithAuthToken(token), nil
		},
	}
	if c.WebURL != "" {
		d.Endpoint = auth.EnterpriseEndpoint(c.WebURL)
	}
	login, err := d.Login(ctx)
	if err != nil {
		return err
	}
	ctx.Logger.Info("github token stored", "login", login)
	return nil
}

type AuthLogoutCmd struct {
	Service []string `arg:"" optional:"" help:"Tokens to remove. All when omitted." enum:"github,sonarqube"`
}

func (c *AuthLogoutCmd) Run(ctx *cliCtx) error {
	services := c.Service
	if len(services) == 0 {
		services = []string{oskeyring.AccountGitHub, oskeyring.AccountSonarQube}
	}
	for _, s := range services {
		if err := ctx.Tokens.Delete(s); err != nil {
			return fmt.Errorf("remove %s token: %w", s, err)
		}
		ctx.Logger.Info("token removed", "service", s)
	}
	return nil
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no token on stdin")
	}
	return line, nil
}
