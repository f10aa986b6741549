package testutl

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/mscno/provisioner"
)

// FakeAnalysis is an in-memory quality-analysis service.
type FakeAnalysis struct {
	mu       sync.Mutex
	Projects map[string]provisioner.AnalysisProject
	Tokens   map[string]provisioner.UserToken
	Calls    map[string]int
	failures map[string]error
	seq      int
}

// NewFakeAnalysis returns an empty service.
func NewFakeAnalysis() *FakeAnalysis {
	return &FakeAnalysis{
		Projects: map[string]provisioner.AnalysisProject{},
		Tokens:   map[string]provisioner.UserToken{},
		Calls:    map[string]int{},
		failures: map[string]error{},
	}
}

// Fail makes op fail with err whenever it is called for id.
func (f *FakeAnalysis) Fail(op, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+" "+id] = err
}

// CallCount returns how often op was called.
func (f *FakeAnalysis) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// AddToken registers an existing token, as left behind by an earlier run.
func (f *FakeAnalysis) AddToken(name, projectKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tokens[name] = provisioner.UserToken{Name: name, Type: "PROJECT_ANALYSIS_TOKEN", ProjectKey: projectKey}
}

func (f *FakeAnalysis) call(op, id string) error {
	f.Calls[op]++
	return f.failures[op+" "+id]
}

func (f *FakeAnalysis) CreateProject(_ context.Context, p provisioner.AnalysisProject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateProject", p.Key); err != nil {
		return err
	}
	if _, ok := f.Projects[p.Key]; ok {
		return &provisioner.RemoteError{Service: "sonarqube", Status: http.StatusBadRequest, Body: "Could not create Project with key: " + p.Key}
	}
	f.Projects[p.Key] = p
	return nil
}

func (f *FakeAnalysis) DeleteProject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteProject", key); err != nil {
		return err
	}
	if _, ok := f.Projects[key]; !ok {
		return fmt.Errorf("project %s: %w", key, provisioner.ErrNotFound)
	}
	delete(f.Projects, key)
	return nil
}

func (f *FakeAnalysis) GenerateToken(_ context.Context, projectKey string) (provisioner.AnalysisToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GenerateToken", projectKey); err != nil {
		return provisioner.AnalysisToken{}, err
	}
	if _, ok := f.Projects[projectKey]; !ok {
		return provisioner.AnalysisToken{}, fmt.Errorf("project %s: %w", projectKey, provisioner.ErrNotFound)
	}
	name := provisioner.TokenName(projectKey)
	if _, ok := f.Tokens[name]; ok {
		return provisioner.AnalysisToken{}, &provisioner.RemoteError{Service: "sonarqube", Status: http.StatusBadRequest, Body: "token already exists"}
	}
	f.seq++
	f.Tokens[name] = provisioner.UserToken{Name: name, Type: "PROJECT_ANALYSIS_TOKEN", ProjectKey: projectKey}
	return provisioner.AnalysisToken{ProjectKey: projectKey, Name: name, Token: fmt.Sprintf("sqa_%04d", f.seq)}, nil
}

func (f *FakeAnalysis) RevokeToken(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RevokeToken", name); err != nil {
		return err
	}
	if _, ok := f.Tokens[name]; !ok {
		return fmt.Errorf("token %s: %w", name, provisioner.ErrNotFound)
	}
	delete(f.Tokens, name)
	return nil
}

func (f *FakeAnalysis) SearchTokens(_ context.Context) ([]provisioner.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SearchTokens", ""); err != nil {
		return nil, err
	}
	out := make([]provisioner.UserToken, 0, len(f.Tokens))
	for _, t := range f.Tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
