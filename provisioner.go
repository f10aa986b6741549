// Package provisioner holds the shared vocabulary of the provisioning service:
// permission levels, the naming rules that tie teams, analysis projects and
// tokens back to a repository, the outcome record used by every stage, and the
// sentinel errors the gateways report.
package provisioner

import (
	"fmt"
	"strings"
)

// Permission is a repository access level granted to a team.
type Permission string

const (
	PermissionPull     Permission = "pull"
	PermissionTriage   Permission = "triage"
	PermissionPush     Permission = "push"
	PermissionMaintain Permission = "maintain"
	PermissionAdmin    Permission = "admin"
)

// PermissionLevels lists every level from least to most privileged. The order is
// also the order in which per-repository teams are built.
var PermissionLevels = []Permission{
	PermissionPull,
	PermissionTriage,
	PermissionPush,
	PermissionMaintain,
	PermissionAdmin,
}

func (p Permission) String() string {
	return string(p)
}

// Rank returns the position of p in PermissionLevels, or -1 for unknown levels.
func (p Permission) Rank() int {
	for i, level := range PermissionLevels {
		if level == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the known levels.
func (p Permission) Valid() bool {
	return p.Rank() >= 0
}

// ParsePermission converts s into a Permission.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown permission %q", ErrValidation, s)
	}
	return p, nil
}

const (
	// SecretAnalysisToken is the repository secret carrying the analysis token.
	SecretAnalysisToken = "SONAR_TOKEN"
	// SecretProjectKey is the repository secret carrying the analysis project key.
	SecretProjectKey = "SONAR_PROJECT_KEY"

	tokenSuffix = "_analysis_token"
)

// SecretNames lists the repository secrets written during provisioning, in write order.
var SecretNames = []string{SecretAnalysisToken, SecretProjectKey}

// TeamName derives the team name for repo at level p.
func TeamName(repo string, p Permission) string {
	return repo + "-" + string(p)
}

// TeamSlug converts a team name into the slug the source host addresses it by.
func TeamSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// TeamNames returns the five team names derived for repo, in PermissionLevels order.
func TeamNames(repo string) []string {
	names := make([]string, 0, len(PermissionLevels))
	for _, p := range PermissionLevels {
		names = append(names, TeamName(repo, p))
	}
	return names
}

// TeamPermission recovers the permission level encoded in a team name derived for
// repo. ok is false when name is not one of the five derived names.
func TeamPermission(repo, name string) (p Permission, ok bool) {
	prefix := repo + "-"
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	p = Permission(strings.TrimPrefix(name, prefix))
	if !p.Valid() {
		return "", false
	}
	return p, true
}

// ProjectKey derives the analysis project key from a repository name.
func ProjectKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// TokenName derives the analysis token name for a project key.
func TokenName(projectKey string) string {
	return projectKey + tokenSuffix
}

// TokenPrefix is the prefix shared by every analysis token issued for projectKey.
func TokenPrefix(projectKey string) string {
	return projectKey + "_"
}

// OwnsToken reports whether tokenName was issued for projectKey.
func OwnsToken(projectKey, tokenName string) bool {
	return strings.HasPrefix(tokenName, TokenPrefix(projectKey))
}
