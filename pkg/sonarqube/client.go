// Package sonarqube is a small client for the quality-analysis service web API:
// project create/delete and analysis token generate/search/revoke.
package sonarqube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/mscno/provisioner"
)

const (
	service = "sonarqube"

	// TokenTypeProjectAnalysis scopes a token to analysing one project.
	TokenTypeProjectAnalysis = "PROJECT_ANALYSIS_TOKEN"

	maxErrorBody = 4 << 10
)

// Client calls the quality-analysis web API with a bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New returns a client for baseURL. A nil httpClient gets a 30s default.
func New(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
		Logger:     logger,
	}
}

type createProjectForm struct {
	Name    string `url:"name"`
	Project string `url:"project"`
}

type deleteProjectForm struct {
	Project string `url:"project"`
}

type generateTokenForm struct {
	Name       string `url:"name"`
	Type       string `url:"type"`
	ProjectKey string `url:"projectKey"`
}

type revokeTokenForm struct {
	Name string `url:"name"`
}

type generateTokenResponse struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type searchTokensResponse struct {
	Login      string `json:"login"`
	UserTokens []struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Project *struct {
			Key string `json:"key"`
		} `json:"project"`
	} `json:"userTokens"`
}

// CreateProject creates the analysis project for p.
func (c *Client) CreateProject(ctx context.Context, p provisioner.AnalysisProject) error {
	return c.post(ctx, "/api/projects/create", createProjectForm{Name: p.Name, Project: p.Key}, nil)
}

// DeleteProject removes the project with key. A missing project yields provisioner.ErrNotFound.
func (c *Client) DeleteProject(ctx context.Context, key string) error {
	return c.post(ctx, "/api/projects/delete", deleteProjectForm{Project: key}, nil)
}

// GenerateToken issues a project analysis token named after the project key.
func (c *Client) GenerateToken(ctx context.Context, projectKey string) (provisioner.AnalysisToken, error) {
	form := generateTokenForm{
		Name:       provisioner.TokenName(projectKey),
		Type:       TokenTypeProjectAnalysis,
		ProjectKey: projectKey,
	}
	var out generateTokenResponse
	if err := c.post(ctx, "/api/user_tokens/generate", form, &out); err != nil {
		return provisioner.AnalysisToken{}, err
	}
	if out.Token == "" {
		return provisioner.AnalysisToken{}, fmt.Errorf("%s: token generation returned no token", service)
	}
	return provisioner.AnalysisToken{ProjectKey: projectKey, Name: form.Name, Token: out.Token}, nil
}

// RevokeToken revokes the caller's token called name.
func (c *Client) RevokeToken(ctx context.Context, name string) error {
	return c.post(ctx, "/api/user_tokens/revoke", revokeTokenForm{Name: name}, nil)
}

// SearchTokens lists the tokens of the authenticated user.
func (c *Client) SearchTokens(ctx context.Context) ([]provisioner.UserToken, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/user_tokens/search", nil)
	if err != nil {
		return nil, err
	}
	var out searchTokensResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	tokens := make([]provisioner.UserToken, 0, len(out.UserTokens))
	for _, t := range out.UserTokens {
		ut := provisioner.UserToken{Name: t.Name, Type: t.Type}
		if t.Project != nil {
			ut.ProjectKey = t.Project.Key
		}
		tokens = append(tokens, ut)
	}
	return tokens, nil
}

func (c *Client) post(ctx context.Context, path string, form any, out any) error {
	values, err := query.Values(form)
	if err != nil {
		return fmt.Errorf("%s: encode form: %w", service, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.JoinPath(c.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()
	c.Logger.Debug("sonarqube request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", service, req.URL.Path, provisioner.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &provisioner.RemoteError{Service: service, Status: resp.StatusCode, Body: errorMessage(body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

// errorMessage extracts {"errors":[{"msg":...}]} when present.
func errorMessage(body []byte) string {
	var e struct {
		Errors []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &e) == nil && len(e.Errors) > 0 {
		msgs := make([]string, len(e.Errors))
		for i, m := range e.Errors {
			msgs[i] = m.Msg
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(body))
}
