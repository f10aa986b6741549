package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mscno/provisioner/pkg/config"
	"github.com/mscno/provisioner/pkg/fanout"
	"github.com/mscno/provisioner/pkg/githubapp"
	"github.com/mscno/provisioner/pkg/keys"
	"github.com/mscno/provisioner/pkg/metrics"
	"github.com/mscno/provisioner/pkg/provision"
	"github.com/mscno/provisioner/pkg/sonarqube"
	"github.com/mscno/provisioner/server"
	"github.com/mscno/provisioner/server/stores"
	"google.golang.org/api/option"
)

// buildService wires the gateways from cfg. m may be nil.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*provision.Service, error) {
	ghBase, ghCA, err := keys.ClientForPath(cfg.Certificates.GitHub, cfg.GitHub.Timeout)
	if err != nil {
		return nil, fmt.Errorf("github certificate: %w", err)
	}
	logPinned(logger, "github", ghCA)

	creds := githubapp.Credentials{
		Token:          cfg.GitHub.Token,
		AppID:          cfg.GitHub.AppID,
		InstallationID: cfg.GitHub.InstallationID,
	}
	if cfg.GitHub.UsesApp() {
		creds.PrivateKey, err = os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read github app key: %w", err)
		}
	}
	ghHTTP, err := githubapp.NewHTTPClient(ctx, ghBase, cfg.GitHub.APIURL, creds)
	if err != nil {
		return nil, err
	}
	ghClient, err := githubapp.NewClient(ghHTTP, cfg.GitHub.APIURL)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	host := githubapp.NewSourceHost(ghClient, cfg.GitHub.TemplateOwner, cfg.GitHub.TemplateRepo, logger)

	sqHTTP, sqCA, err := keys.ClientForPath(cfg.Certificates.SonarQube, cfg.SonarQube.Timeout)
	if err != nil {
		return nil, fmt.Errorf("sonarqube certificate: %w", err)
	}
	logPinned(logger, "sonarqube", sqCA)
	analysis := sonarqube.New(cfg.SonarQube.URL, cfg.SonarQube.Token, sqHTTP, logger)

	exec := fanout.New(logger, cfg.Concurrency)
	if m != nil {
		exec.Observer = m
	}
	return provision.New(host, analysis, provision.WithExecutor(exec), provision.WithLogger(logger)), nil
}

func logPinned(logger *slog.Logger, service string, ca *keys.PinnedCA) {
	if ca == nil {
		return
	}
	logger.Info("pinned certificate authority",
		"service", service,
		"path", ca.Path,
		"fingerprint", ca.Fingerprint,
		"words", ca.Words(),
	)
}

func openJournal(ctx context.Context, cfg config.Journal) (stores.Journal, error) {
	switch cfg.Backend {
	case "bolt":
		return stores.OpenBoltJournal(cfg.BoltPath)
	case "datastore":
		var opts []option.ClientOption
		if cfg.DatastoreEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.DatastoreEndpoint))
		}
		return stores.NewDatastoreJournal(ctx, cfg.DatastoreProject, cfg.DatastoreDatabase, opts...)
	default:
		return stores.NewMemoryJournal(), nil
	}
}

// provisioner returns the injected service or builds one from config.
func (g *Globals) provisioner(ctx *cliCtx) (server.Provisioner, error) {
	if ctx.service != nil {
		return ctx.service, nil
	}
	cfg, err := g.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return buildService(ctx, cfg, ctx.Logger, nil)
}
