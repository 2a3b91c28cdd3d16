package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"go-indexing-qa-console/internal/alerts"
	"go-indexing-qa-console/internal/connectors/backenddb"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/views"
)

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "records", Short: "List and review processed records"}

	var (
		filters qa.RecordFilters
		page    int
		limit   int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List records with their quality score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc := views.NewRecords(a.client, a.logger, a.cfg.DefaultPageLimit)
			state := rc.Load(cmd.Context(), filters, qa.Pagination{Page: page, Limit: limit})
			if state.Error != "" {
				return fmt.Errorf("load records: %s", state.Error)
			}
			if a.output != "table" {
				return a.render(state.Records)
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "COMPANY", "CONNECTOR", "STATUS", "QUALITY", "CREATED")
			for _, r := range state.Records {
				row(tw, r.ID, r.CompanyName, r.SourceConnectorName, r.Status, fmt.Sprintf("%.1f", float64(r.QualityScore)), ago(r.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d, %s of %s records\n", state.Pagination.Page, count(len(state.Records)), count(state.Total))
			return nil
		},
	}
	list.Flags().StringSliceVar(&filters.Statuses, "status", nil, "filter by status")
	list.Flags().StringSliceVar(&filters.Companies, "company", nil, "filter by company")
	list.Flags().StringSliceVar(&filters.Connectors, "connector", nil, "filter by source connector")
	list.Flags().StringSliceVar(&filters.Tags, "tag", nil, "filter by tag")
	list.Flags().StringVar(&filters.Search, "search", "", "full text search")
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", 0, "page size (default APP_DEFAULT_PAGE_LIMIT)")

	var user, reason string
	review := func(use, short string, fn func(rc *views.Records, cmd *cobra.Command, id string) error) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rc := views.NewRecords(a.client, a.logger, a.cfg.DefaultPageLimit)
				if err := fn(rc, cmd, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", args[0], use)
				return nil
			},
		}
		c.Flags().StringVar(&user, "user", "admin", "reviewer recorded in the audit trail")
		c.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit trail")
		return c
	}
	cmd.AddCommand(
		list,
		review("approve", "Approve a record", func(rc *views.Records, cmd *cobra.Command, id string) error {
			return rc.Approve(cmd.Context(), id, user, reason)
		}),
		review("flag", "Flag a record for follow up", func(rc *views.Records, cmd *cobra.Command, id string) error {
			return rc.Flag(cmd.Context(), id, user, reason)
		}),
	)
	return cmd
}

func newDeadLettersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "dead-letters", Aliases: []string{"dlq"}, Short: "Inspect and act on the dead letter queue"}

	var (
		query      qa.DeadLetterQuery
		unresolved bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List dead letters and queue stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if unresolved {
				f := false
				query.Resolved = &f
			}
			if query.Limit <= 0 {
				query.Limit = a.cfg.DefaultPageLimit
			}
			dl := views.NewDeadLetters(a.client, a.logger, 0)
			state := dl.Load(cmd.Context(), query)
			if state.Error != "" {
				return fmt.Errorf("load dead letters: %s", state.Error)
			}
			if a.output != "table" {
				return a.render(state)
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "ERROR TYPE", "CONNECTOR", "RETRIES", "FAILED", "RESOLVED", "MESSAGE")
			for _, r := range state.Records {
				row(tw, r.ID, r.ErrorType, r.SourceConnector, r.RetryCount, ago(r.FailedAt), r.Resolved, truncate(r.ErrorMessage, 60))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			s := state.Stats
			note := ""
			if state.StatsDerived {
				note = " (derived from listed records)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total %s, unresolved %s, resolved %s, avg retries %.1f%s\n",
				count(s.TotalCount), count(s.UnresolvedCount), count(s.ResolvedCount), s.AvgRetryCount, note)
			return nil
		},
	}
	list.Flags().StringVar(&query.ErrorType, "error-type", "", "filter by error type")
	list.Flags().StringVar(&query.SourceConnector, "connector", "", "filter by source connector")
	list.Flags().StringVar(&query.Search, "search", "", "search error messages")
	list.Flags().IntVar(&query.HoursBack, "hours-back", 0, "only dead letters from the last N hours")
	list.Flags().IntVar(&query.Page, "page", 1, "page number")
	list.Flags().IntVar(&query.Limit, "limit", 0, "page size")
	list.Flags().BoolVar(&unresolved, "unresolved", false, "only unresolved dead letters")

	action := func(name, short string, fn func(dl *views.DeadLetters, cmd *cobra.Command, id string) error) *cobra.Command {
		return &cobra.Command{
			Use:   name + " <id>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dl := views.NewDeadLetters(a.client, a.logger, 0)
				failed := 0
				for _, id := range args {
					if err := fn(dl, cmd, id); err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", id, name)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d dead letters failed to %s", failed, len(args), name)
				}
				return nil
			},
		}
	}
	cmd.AddCommand(
		list,
		action("retry", "Requeue dead letters for processing", func(dl *views.DeadLetters, cmd *cobra.Command, id string) error {
			return dl.Retry(cmd.Context(), id)
		}),
		action("resolve", "Mark dead letters resolved", func(dl *views.DeadLetters, cmd *cobra.Command, id string) error {
			return dl.Resolve(cmd.Context(), id)
		}),
		action("delete", "Delete dead letters", func(dl *views.DeadLetters, cmd *cobra.Command, id string) error {
			return dl.Delete(cmd.Context(), id)
		}),
	)
	return cmd
}

func newIssuesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "issues", Short: "List and auto-fix quality issues"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List open quality issues, most severe first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := views.NewIssues(a.client, a.logger, 4).Load(cmd.Context())
			if state.Error != "" {
				return fmt.Errorf("load issues: %s", state.Error)
			}
			if a.output != "table" {
				return a.render(state)
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "SEVERITY", "TYPE", "AUTO-FIX", "DESCRIPTION")
			for _, is := range state.Issues {
				row(tw, is.ID, is.Severity, is.Type, is.AutoFixable, truncate(is.Description, 70))
			}
			return tw.Flush()
		},
	}, &cobra.Command{
		Use:   "auto-fix [id]...",
		Short: "Auto-fix the given issues, or every auto-fixable one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ic := views.NewIssues(a.client, a.logger, 4)
			if len(args) == 0 {
				ic.Load(cmd.Context())
			}
			res := ic.AutoFixAll(cmd.Context(), args)
			if a.output != "table" {
				return a.render(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fixed %d of %d\n", len(res.Fixed), res.Requested)
			ids := make([]string, 0, len(res.Errors))
			for id := range res.Errors {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", id, res.Errors[id])
			}
			if res.Failed {
				return fmt.Errorf("auto-fix failed for %d issues", len(res.Errors))
			}
			return nil
		},
	})
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Show, export or change quality thresholds and LLM settings"}
	var user, reason string
	setThreshold := &cobra.Command{
		Use:   "set-threshold <name> <value>",
		Short: "Save one threshold, clamped to its range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			stored, saved, err := views.NewSettings(a.client, a.logger).ApplyThreshold(cmd.Context(), args[0], value, user, reason)
			if err != nil {
				return err
			}
			if a.output != "table" {
				return a.render(map[string]any{"name": args[0], "value": stored, "saved": saved})
			}
			if !saved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already %g\n", args[0], stored)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %g\n", args[0], stored)
			return nil
		},
	}
	setThreshold.Flags().StringVar(&user, "user", "admin", "recorded as the change author")
	setThreshold.Flags().StringVar(&reason, "reason", "", "reason for the change")
	cmd.AddCommand(setThreshold)
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show thresholds and the LLM invocation settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page := views.NewSettings(a.client, a.logger).Page(cmd.Context())
			if a.output != "table" {
				return a.render(page)
			}
			for tab, msg := range page.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", tab, msg)
			}
			tw := newTable(cmd.OutOrStdout(), "THRESHOLD", "VALUE", "DEFAULT", "RANGE", "UPDATED BY")
			for _, t := range page.Thresholds {
				row(tw, t.Name, t.CurrentValue, t.DefaultValue, fmt.Sprintf("[%g, %g]", t.MinValue, t.MaxValue), t.UpdatedBy)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			llm := page.LLM
			fmt.Fprintf(cmd.OutOrStdout(), "\nllm mode %s: percentage %.1f, weighted %.1f, range [%.1f, %.1f]\n",
				llm.Mode, llm.PercentageThreshold, llm.WeightedThreshold, llm.RangeMinThreshold, llm.RangeMaxThreshold)
			return nil
		},
	}, &cobra.Command{
		Use:   "export",
		Short: "Export thresholds and LLM settings as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page := views.NewSettings(a.client, a.logger).Page(cmd.Context())
			if len(page.Errors) > 0 {
				return fmt.Errorf("settings incomplete: %v", page.Errors)
			}
			values := make(map[string]float64, len(page.Thresholds))
			for _, t := range page.Thresholds {
				values[t.Name] = t.CurrentValue
			}
			return renderTo(cmd.OutOrStdout(), "yaml", map[string]any{
				"thresholds": values,
				"llm":        page.LLM,
			})
		},
	})
	return cmd
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		file      string
		mode      string
		threshold float64
		remote    bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate the LLM invocation policy against a sample",
		Long: "Reads a JSON sample (a list of quality checks or an object with quality_checks)\n" +
			"from --file or stdin and prints the decision under the current settings.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var raw []byte
			var err error
			if file == "" || file == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			var upd views.LLMUpdate
			if mode != "" {
				m, ok := qa.ParseMode(mode)
				if !ok {
					return fmt.Errorf("unknown mode %q", mode)
				}
				upd.Mode = &m
			}
			if cmd.Flags().Changed("threshold") {
				upd.PercentageThreshold = &threshold
			}
			s := views.NewSettings(a.client, a.logger)
			simulate := s.Simulate
			if remote {
				simulate = s.SimulateRemote
			}
			decision, err := simulate(cmd.Context(), upd, raw)
			if err != nil {
				return err
			}
			if a.output != "table" {
				return a.render(decision)
			}
			verdict := "skip LLM"
			if decision.ShouldInvokeLLM {
				verdict = "invoke LLM"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s mode, score %.1f vs threshold %.1f, %d/%d checks passed)\n%s\n",
				verdict, decision.ModeUsed, decision.Score, decision.ThresholdUsed, decision.PassedChecks, decision.TotalChecks, decision.Reason)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "sample file (default stdin)")
	cmd.Flags().StringVar(&mode, "mode", "", "override the mode: binary, percentage, weighted or range")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "override the percentage threshold")
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the backend to evaluate the sample instead")
	return cmd
}

func newAlertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "alerts", Short: "Dead letter backlog alerting"}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Measure the dead letter backlog once and alert when over the threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources := alerts.FirstOf{alerts.APIBacklog{API: a.client}}
			if a.cfg.DBEnabled {
				db, err := backenddb.NewStore(a.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				sources = append(sources, db)
			}
			notifier := alerts.NewSlackNotifier(a.cfg.SlackWebhookURL, a.cfg.SlackChannel)
			job := &alerts.BacklogJob{
				Source:    sources,
				Manager:   alerts.NewManager(notifier, a.cfg.AlertThrottle, a.logger),
				Threshold: a.cfg.DeadLetterBacklogLimit,
				Logger:    a.logger,
			}
			n, sent, err := job.Check(cmd.Context())
			if err != nil {
				return err
			}
			status := "below threshold"
			switch {
			case sent && notifier.Enabled():
				status = "alert sent to " + a.cfg.SlackChannel
			case sent:
				status = "over threshold (slack webhook not configured)"
			case n >= a.cfg.DeadLetterBacklogLimit:
				status = "over threshold"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unresolved dead letters: %s (threshold %s), %s\n",
				count(n), count(a.cfg.DeadLetterBacklogLimit), strings.TrimSpace(status))
			return nil
		},
	})
	return cmd
}
