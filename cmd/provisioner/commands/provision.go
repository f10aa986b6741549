package commands

import (
	"fmt"

	"github.com/mscno/provisioner/pkg/provision"
)

type CreateCmd struct {
	Org    string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Repos  []string `arg:"" help:"Repository names."`
	Topics []string `help:"Topics to set on every repository." short:"t"`
}

func (c *CreateCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	report, err := svc.CreateRepositories(ctx, provision.CreateReposRequest{Org: c.Org, Repos: c.Repos, Topics: c.Topics})
	if err != nil {
		return err
	}
	if err := printJSON(ctx.Stdout, report); err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d unit(s) failed", len(report.Failures))
	}
	return nil
}

type CreateOneCmd struct {
	Org        string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Repo       string   `arg:"" help:"Repository name."`
	Team       string   `help:"Team to create or reuse." required:""`
	Permission string   `help:"Team permission." default:"push" enum:"pull,triage,push,maintain,admin"`
	Topics     []string `help:"Topics to set." short:"t"`
}

func (c *CreateOneCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	result, err := svc.CreateRepository(ctx, provision.CreateRepoRequest{
		Org:        c.Org,
		Repo:       c.Repo,
		Team:       c.Team,
		Permission: c.Permission,
		Topics:     c.Topics,
	})
	if err != nil {
		return err
	}
	return printJSON(ctx.Stdout, result)
}

type DeleteCmd struct {
	Org   string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Repos []string `arg:"" help:"Repository names."`
	Yes   bool     `help:"Confirm the deletion." short:"y"`
}

func (c *DeleteCmd) Run(ctx *cliCtx, g *Globals) error {
	if !c.Yes {
		return fmt.Errorf("refusing to delete %d repositories without --yes", len(c.Repos))
	}
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	report, err := svc.DeleteRepositories(ctx, provision.DeleteReposRequest{Org: c.Org, Repos: c.Repos})
	if err != nil {
		return err
	}
	if err := printJSON(ctx.Stdout, report); err != nil {
		return err
	}
	if report.Succeeded != report.Total {
		return fmt.Errorf("%d of %d repositories not fully removed", report.Total-report.Succeeded, report.Total)
	}
	return nil
}

type RulesetCmd struct {
	Org     string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Ruleset string   `help:"Ruleset name." required:"" short:"r"`
	Repos   []string `arg:"" help:"Repositories to add."`
}

func (c *RulesetCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	result, err := svc.ReconcileRuleset(ctx, provision.RulesetRequest{Org: c.Org, Ruleset: c.Ruleset, Repos: c.Repos})
	if err != nil {
		return err
	}
	return printJSON(ctx.Stdout, result)
}

type MembersCmd struct {
	Add    MembersAddCmd    `cmd:"" help:"Add users to a team."`
	Remove MembersRemoveCmd `cmd:"" help:"Remove users from a team. Users already absent are reported, not failed."`
}

// MembersFlags are shared by the membership commands.
type MembersFlags struct {
	Org   string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Team  string   `help:"Team slug." required:""`
	Users []string `arg:"" help:"User logins."`
}

func (f MembersFlags) request() provision.MembersRequest {
	return provision.MembersRequest{
		Org:   f.Org,
		Teams: []provision.TeamMembers{{Team: f.Team, Members: f.Users}},
	}
}

type MembersAddCmd struct {
	MembersFlags
}

func (c *MembersAddCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	report, err := svc.AddMembers(ctx, c.request())
	if err != nil {
		return err
	}
	return printJSON(ctx.Stdout, report)
}

type MembersRemoveCmd struct {
	MembersFlags
}

func (c *MembersRemoveCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	report, err := svc.RemoveMembers(ctx, c.request())
	if err != nil {
		return err
	}
	return printJSON(ctx.Stdout, report)
}

type PermissionCmd struct {
	Org        string   `help:"Organization." required:"" short:"o" env:"GITHUB_ORG"`
	Teams      []string `help:"Team slugs." required:"" name:"team"`
	Permission string   `help:"Permission to grant." required:"" enum:"pull,triage,push,maintain,admin"`
	Repos      []string `arg:"" help:"Repositories."`
}

func (c *PermissionCmd) Run(ctx *cliCtx, g *Globals) error {
	svc, err := g.provisioner(ctx)
	if err != nil {
		return err
	}
	report, err := svc.UpdatePermissions(ctx, provision.PermissionRequest{
		Org:        c.Org,
		Repos:      c.Repos,
		Teams:      c.Teams,
		Permission: c.Permission,
	})
	if err != nil {
		return err
	}
	if err := printJSON(ctx.Stdout, report); err != nil {
		return err
	}
	if report.Succeeded != report.Total {
		return fmt.Errorf("%d of %d grants failed", report.Total-report.Succeeded, report.Total)
	}
	return nil
}
