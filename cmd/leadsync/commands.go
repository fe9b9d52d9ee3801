package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/xavierca1/leadsync/internal/app"
	"github.com/xavierca1/leadsync/internal/usecase"
)

type execFunc func(ctx context.Context, a *app.App) error

type command func(c *cli) (*flag.FlagSet, execFunc)

var commands = map[string]command{
	"campaigns":    campaignsCmd,
	"sync":         syncCmd,
	"details":      detailsCmd,
	"crm-sync":     crmSyncCmd,
	"notes-dedupe": notesDedupeCmd,
	"stats":        statsCmd,
	"clear":        clearCmd,
	"vacuum":       vacuumCmd,
	"verify":       verifyCmd,
}

var errHubSpotNotConfigured = &usecase.DomainError{Code: "HUBSPOT_NOT_CONFIGURED", Message: "HUBSPOT_API_TOKEN is not set"}

type cli struct {
	stdout          io.Writer
	stderr          io.Writer
	defaultCampaign string
}

func (c *cli) campaignFlag(fs *flag.FlagSet) *string {
	return fs.String("campaign", c.defaultCampaign, "campaign id (defaults to DEFAULT_CAMPAIGN_ID)")
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) progress(label string) usecase.ProgressFunc {
	return func(current, total int) {
		fmt.Fprintf(c.stderr, "\r%s %d/%d", label, current, total)
		if current == total {
			fmt.Fprintln(c.stderr)
		}
	}
}

func campaignsCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("campaigns", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status (running, draft, paused, ended, archived)")
	return fs, func(ctx context.Context, a *app.App) error {
		campaigns, err := a.Lemlist.ListCampaigns(ctx, *status)
		if err != nil {
			return err
		}
		sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].Name < campaigns[j].Name })
		for _, cp := range campaigns {
			fmt.Fprintf(c.stdout, "%s\t%-9s\t%s\n", cp.ID, cp.Status, cp.Name)
		}
		return nil
	}
}

func syncCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	name := fs.String("name", "", "campaign display name")
	status := fs.String("status", "", "campaign status")
	force := fs.Bool("force", false, "refetch the whole history")
	details := fs.Bool("details", false, "resolve lead details after the fetch")
	crm := fs.Bool("crm", false, "push to HubSpot after the fetch")
	return fs, func(ctx context.Context, a *app.App) error {
		report, err := a.Pipeline.Execute(ctx, usecase.PipelineInput{
			SyncCampaignInput: usecase.SyncCampaignInput{
				CampaignID:     *campaign,
				CampaignName:   *name,
				CampaignStatus: *status,
				ForceFull:      *force,
			},
			FetchDetails: *details,
			PushCRM:      *crm,
			Progress:     c.progress("leads"),
		})
		if report != nil {
			if perr := c.printJSON(report); perr != nil {
				return perr
			}
		}
		return err
	}
}

func detailsCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("details", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	return fs, func(ctx context.Context, a *app.App) error {
		res, err := a.Details.Execute(ctx, usecase.FetchLeadDetailsInput{CampaignID: *campaign, Progress: c.progress("leads")})
		if res != nil {
			fmt.Fprintf(c.stdout, "processed %d, resolved %d, failed %d\n", res.Processed, res.Succeeded, res.Failed)
		}
		return err
	}
}

func crmSyncCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("crm-sync", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	return fs, func(ctx context.Context, a *app.App) error {
		if a.CRM == nil {
			return errHubSpotNotConfigured
		}
		if _, err := a.Classify.Execute(ctx, *campaign); err != nil {
			return err
		}
		res, err := a.CRM.Execute(ctx, usecase.SyncCRMInput{CampaignID: *campaign, Progress: c.progress("contacts")})
		if res != nil {
			fmt.Fprintf(c.stdout, "processed %d, updated %d, failed %d, skipped %d\n",
				res.Processed, res.Succeeded, res.Failed, res.Skipped)
			for _, e := range res.BatchErrors {
				fmt.Fprintf(c.stdout, "  %s\n", e)
			}
		}
		return err
	}
}

func notesDedupeCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("notes-dedupe", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	apply := fs.Bool("apply", false, "archive the duplicates instead of only reporting them")
	return fs, func(ctx context.Context, a *app.App) error {
		if a.Notes == nil {
			return errHubSpotNotConfigured
		}
		out, err := a.Notes.Execute(ctx, usecase.NotesCleanupInput{
			CampaignID: *campaign,
			DryRun:     !*apply,
			Progress:   c.progress("contacts"),
		})
		if out != nil {
			fmt.Fprintf(c.stdout, "contacts %d, notes %d, lemlist notes %d, duplicate groups %d, to delete %d\n",
				out.Contacts, out.Notes, out.LemlistNotes, out.DuplicateGroups, out.ToDelete)
			types := make([]string, 0, len(out.ByType))
			for t := range out.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(c.stdout, "  %-24s %d\n", t, out.ByType[t])
			}
			if *apply {
				fmt.Fprintf(c.stdout, "deleted %d, failed %d\n", out.Deleted, out.Failed)
			}
		}
		return err
	}
}

func statsCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	return fs, func(ctx context.Context, a *app.App) error {
		if *campaign == "" {
			return usecase.ErrCampaignRequired
		}
		stats, err := a.Store.CampaignStats(ctx, *campaign)
		if err != nil {
			return err
		}
		return c.printJSON(stats)
	}
}

func clearCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	campaign := c.campaignFlag(fs)
	return fs, func(ctx context.Context, a *app.App) error {
		if *campaign == "" {
			return usecase.ErrCampaignRequired
		}
		if err := a.Pipeline.Clear(ctx, *campaign); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "cleared %s\n", *campaign)
		return nil
	}
}

func vacuumCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("vacuum", flag.ContinueOnError)
	return fs, func(ctx context.Context, a *app.App) error {
		if err := a.Store.Vacuum(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "cache compacted")
		return nil
	}
}

func verifyCmd(c *cli) (*flag.FlagSet, execFunc) {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	return fs, func(ctx context.Context, a *app.App) error {
		ok, err := a.Lemlist.VerifyToken(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "lemlist: %s\n", tokenState(ok))

		if a.HubSpot == nil {
			fmt.Fprintln(c.stdout, "hubspot: not configured")
			return nil
		}
		ok, err = a.HubSpot.VerifyToken(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "hubspot: %s\n", tokenState(ok))
		return nil
	}
}

func tokenState(ok bool) string {
	if ok {
		return "valid"
	}
	return "rejected"
}

// userMessage keeps local store errors readable; remote failures get the
// operator message.
func userMessage(err error) string {
	msg := usecase.UserMessage(err)
	if msg == usecase.MsgUnexpected || msg == usecase.MsgCache {
		return msg + " " + err.Error()
	}
	return msg
}
