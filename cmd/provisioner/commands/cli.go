// Package commands implements the provisioner command line.
package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/mscno/provisioner/pkg/config"
	"github.com/mscno/provisioner/pkg/oskeyring"
	"github.com/mscno/provisioner/server"
)

type cliCtx struct {
	context.Context
	Logger  *slog.Logger
	Stdout  io.Writer
	Tokens  *oskeyring.Tokens
	Version string

	// service is set by tests to bypass gateway construction.
	service server.Provisioner
}

// Globals are flags shared by every command.
type Globals struct {
	Config      string `help:"YAML config file." type:"path" env:"PROVISIONER_CONFIG" short:"c"`
	EnvFile     string `help:"dotenv file loaded before the environment." default:".env" env:"PROVISIONER_ENV_FILE"`
	LogLevel    string `help:"Override the configured log level." default:""`
	Concurrency int    `help:"Override the per-stage concurrency cap." default:"-1"`
}

type cli struct {
	Globals

	Serve      ServeCmd         `cmd:"" help:"Run the HTTP API."`
	Create     CreateCmd        `cmd:"" help:"Provision repositories with the full team hierarchy."`
	CreateOne  CreateOneCmd     `cmd:"" name:"create-one" help:"Provision one repository with a named team."`
	Delete     DeleteCmd        `cmd:"" help:"Decommission repositories."`
	Ruleset    RulesetCmd       `cmd:"" help:"Add repositories to an organization ruleset."`
	Members    MembersCmd       `cmd:"" help:"Manage team membership."`
	Permission PermissionCmd    `cmd:"" help:"Set team permissions on repositories."`
	Auth       AuthCmd          `cmd:"" help:"Store or forget service tokens in the OS keyring."`
	Version    kong.VersionFlag `help:"Show version"`
}

func Execute(version string) {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("provisioner"),
		kong.Description("provisioner creates and decommissions repositories with their teams, analysis project and secrets"),
		kong.Vars{"version": version},
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ctx.Run(&cliCtx{
		Context: sigCtx,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
		Stdout:  os.Stdout,
		Tokens:  oskeyring.NewTokens(),
		Version: version,
	}, &cli.Globals)
	ctx.FatalIfErrorf(err)
}

// loadConfig layers the config sources, fills missing tokens from the keyring,
// applies flag overrides and validates. It also swaps ctx.Logger for the
// configured one.
func (g *Globals) loadConfig(ctx *cliCtx) (config.Config, error) {
	cfg, err := config.Load(g.Config, g.EnvFile)
	if err != nil {
		return cfg, err
	}
	if ctx.Tokens != nil {
		if err := ctx.Tokens.Fill(&cfg.GitHub.Token, oskeyring.AccountGitHub); err != nil {
			ctx.Logger.Warn("keyring lookup failed", "account", oskeyring.AccountGitHub, "error", err)
		}
		if err := ctx.Tokens.Fill(&cfg.SonarQube.Token, oskeyring.AccountSonarQube); err != nil {
			ctx.Logger.Warn("keyring lookup failed", "account", oskeyring.AccountSonarQube, "error", err)
		}
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.Concurrency >= 0 {
		cfg.Concurrency = g.Concurrency
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	ctx.Logger = cfg.Log.NewLogger(os.Stderr)
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
