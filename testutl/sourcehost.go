package testutl

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/crypto"
)

// FakeSourceHost is an in-memory source host. Every method counts its calls and
// can be made to fail for a given id with Fail.
type FakeSourceHost struct {
	mu sync.Mutex

	Keys      crypto.Keypair
	KeyID     string
	Repos     map[string]provisioner.Repository      // org/repo
	Teams     map[string]provisioner.Team            // org/slug
	Grants    map[string]provisioner.Permission      // org/slug/repo
	Members   map[string]bool                        // org/slug/user
	Secrets   map[string]provisioner.EncryptedSecret // org/repo/name
	Topics    map[string][]string                    // org/repo
	Rulesets  map[string]provisioner.Ruleset         // org/name
	Calls     map[string]int
	failures  map[string]error
	staleGets map[string]int
	nextID    int64
}

// NewFakeSourceHost returns an empty host with a fresh secret keypair.
func NewFakeSourceHost() *FakeSourceHost {
	f := &FakeSourceHost{
		KeyID:     "key-1",
		Repos:     map[string]provisioner.Repository{},
		Teams:     map[string]provisioner.Team{},
		Grants:    map[string]provisioner.Permission{},
		Members:   map[string]bool{},
		Secrets:   map[string]provisioner.EncryptedSecret{},
		Topics:    map[string][]string{},
		Rulesets:  map[string]provisioner.Ruleset{},
		Calls:     map[string]int{},
		failures:  map[string]error{},
		staleGets: map[string]int{},
	}
	if err := f.Keys.Generate(); err != nil {
		panic(err)
	}
	return f
}

// Fail makes op fail with err whenever it is called for id.
func (f *FakeSourceHost) Fail(op, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+" "+id] = err
}

// HideTeam makes the next n lookups of slug miss even if the team exists, the
// way a concurrent creator looks from the outside.
func (f *FakeSourceHost) HideTeam(slug string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleGets[slug] = n
}

// CallCount returns how often op was called.
func (f *FakeSourceHost) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// OpenSecret decrypts a stored secret.
func (f *FakeSourceHost) OpenSecret(org, repo, name string) (string, error) {
	f.mu.Lock()
	s, ok := f.Secrets[org+"/"+repo+"/"+name]
	f.mu.Unlock()
	if !ok {
		return "", provisioner.ErrNotFound
	}
	plain, err := f.Keys.Open(s.EncryptedValue)
	return string(plain), err
}

// call records op and returns the injected failure for id, if any. Callers hold mu.
func (f *FakeSourceHost) call(op, id string) error {
	f.Calls[op]++
	return f.failures[op+" "+id]
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, provisioner.ErrNotFound)
}

func (f *FakeSourceHost) CreateRepository(_ context.Context, org, name string) (provisioner.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateRepository", name); err != nil {
		return provisioner.Repository{}, err
	}
	key := org + "/" + name
	if _, ok := f.Repos[key]; ok {
		return provisioner.Repository{}, &provisioner.RemoteError{Service: "github", Status: http.StatusUnprocessableEntity, Body: "name already exists on this account"}
	}
	repo := provisioner.Repository{Org: org, Name: name, URL: "https://github.test/" + key, Private: true}
	f.Repos[key] = repo
	return repo, nil
}

func (f *FakeSourceHost) DeleteRepository(_ context.Context, org, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteRepository", name); err != nil {
		return err
	}
	key := org + "/" + name
	if _, ok := f.Repos[key]; !ok {
		return notFound(key)
	}
	delete(f.Repos, key)
	return nil
}

func (f *FakeSourceHost) GetTeam(_ context.Context, org, slug string) (provisioner.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetTeam", slug); err != nil {
		return provisioner.Team{}, err
	}
	if f.staleGets[slug] > 0 {
		f.staleGets[slug]--
		return provisioner.Team{}, notFound(slug)
	}
	team, ok := f.Teams[org+"/"+slug]
	if !ok {
		return provisioner.Team{}, notFound(slug)
	}
	return team, nil
}

func (f *FakeSourceHost) CreateTeam(_ context.Context, org, name string) (provisioner.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slug := provisioner.TeamSlug(name)
	if err := f.call("CreateTeam", slug); err != nil {
		return provisioner.Team{}, err
	}
	key := org + "/" + slug
	if _, ok := f.Teams[key]; ok {
		return provisioner.Team{}, fmt.Errorf("team %s: %w", name, provisioner.ErrConflict)
	}
	f.nextID++
	team := provisioner.Team{ID: f.nextID, Name: name, Slug: slug}
	f.Teams[key] = team
	return team, nil
}

func (f *FakeSourceHost) DeleteTeam(_ context.Context, org, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteTeam", slug); err != nil {
		return err
	}
	key := org + "/" + slug
	if _, ok := f.Teams[key]; !ok {
		return notFound(key)
	}
	delete(f.Teams, key)
	return nil
}

func (f *FakeSourceHost) AddTeamRepository(_ context.Context, org, slug, repo string, p provisioner.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AddTeamRepository", slug); err != nil {
		return err
	}
	if _, ok := f.Teams[org+"/"+slug]; !ok {
		return notFound(slug)
	}
	f.Grants[org+"/"+slug+"/"+repo] = p
	return nil
}

func (f *FakeSourceHost) AddTeamMember(_ context.Context, org, slug, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AddTeamMember", slug+"/"+user); err != nil {
		return err
	}
	if _, ok := f.Teams[org+"/"+slug]; !ok {
		return notFound(slug)
	}
	f.Members[org+"/"+slug+"/"+user] = true
	return nil
}

func (f *FakeSourceHost) RemoveTeamMember(_ context.Context, org, slug, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RemoveTeamMember", slug+"/"+user); err != nil {
		return err
	}
	key := org + "/" + slug + "/" + user
	if !f.Members[key] {
		return notFound(key)
	}
	delete(f.Members, key)
	return nil
}

func (f *FakeSourceHost) GetPublicKey(_ context.Context, org, repo string) (provisioner.PublicKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetPublicKey", repo); err != nil {
		return provisioner.PublicKey{}, err
	}
	if _, ok := f.Repos[org+"/"+repo]; !ok {
		return provisioner.PublicKey{}, notFound(repo)
	}
	return provisioner.PublicKey{KeyID: f.KeyID, Key: f.Keys.PublicString()}, nil
}

func (f *FakeSourceHost) PutSecret(_ context.Context, org, repo string, secret provisioner.EncryptedSecret) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("PutSecret", repo+"/"+secret.Name); err != nil {
		return err
	}
	if secret.KeyID != f.KeyID {
		return &provisioner.RemoteError{Service: "github", Status: http.StatusUnprocessableEntity, Body: "bad key id"}
	}
	f.Secrets[org+"/"+repo+"/"+secret.Name] = secret
	return nil
}

func (f *FakeSourceHost) DeleteSecret(_ context.Context, org, repo, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteSecret", repo+"/"+name); err != nil {
		return err
	}
	key := org + "/" + repo + "/" + name
	if _, ok := f.Secrets[key]; !ok {
		return notFound(key)
	}
	delete(f.Secrets, key)
	return nil
}

func (f *FakeSourceHost) ReplaceTopics(_ context.Context, org, repo string, topics []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ReplaceTopics", repo); err != nil {
		return err
	}
	f.Topics[org+"/"+repo] = slices.Clone(topics)
	return nil
}

func (f *FakeSourceHost) FindRuleset(_ context.Context, org, name string) (provisioner.Ruleset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("FindRuleset", name); err != nil {
		return provisioner.Ruleset{}, err
	}
	rs, ok := f.Rulesets[org+"/"+name]
	if !ok {
		return provisioner.Ruleset{}, notFound("ruleset " + name)
	}
	rs.IncludeRepositories = slices.Clone(rs.IncludeRepositories)
	return rs, nil
}

func (f *FakeSourceHost) UpdateRulesetRepositories(_ context.Context, org string, rs provisioner.Ruleset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateRulesetRepositories", rs.Name); err != nil {
		return err
	}
	f.Rulesets[org+"/"+rs.Name] = rs
	return nil
}
