package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/xavierca1/leadsync/internal/app"
	"github.com/xavierca1/leadsync/internal/config"
	"github.com/xavierca1/leadsync/internal/logging"
)

const usage = `usage: leadsync <command> [flags]

commands:
  campaigns     list campaigns at Lemlist (-status running)
  sync          fetch a campaign into the cache (-campaign, -force, -details, -crm)
  details       resolve CRM ids and LinkedIn URLs for cached leads
  crm-sync      push engagement metrics and classification to HubSpot
  notes-dedupe  remove duplicate Lemlist notes from HubSpot contacts (-apply)
  stats         show cache counts for a campaign
  clear         delete a campaign from the cache
  vacuum        compact the cache database
  verify        check the Lemlist and HubSpot credentials
`

type appFactory func(ctx context.Context) (*app.App, error)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newApp := func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, logger, app.Options{})
	}

	code := run(ctx, os.Args[1:], cfg.DefaultCampaignID, newApp, os.Stdout, os.Stderr)
	stop()
	logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, args []string, defaultCampaign string, newApp appFactory, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	c := &cli{stdout: stdout, stderr: stderr, defaultCampaign: defaultCampaign}
	fs, exec := cmd(c)
	fs.SetOutput(stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	a, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer a.Close()

	if err := exec(ctx, a); err != nil {
		fmt.Fprintf(stderr, "❌ %s\n", userMessage(err))
		return 1
	}
	return 0
}
