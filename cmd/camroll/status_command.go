package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"camroll/internal/config"
	"camroll/internal/dropbox"
	"camroll/internal/ledger"
	"camroll/internal/preflight"
)

type statusReport struct {
	Checks      []preflight.Result `json:"checks"`
	Root        string             `json:"root"`
	LedgerKind  string             `json:"ledger_backend"`
	LedgerPath  string             `json:"ledger_path"`
	LedgerCount int                `json:"ledger_entries"`
	DryRun      bool               `json:"dry_run"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check Dropbox access, local paths, and notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.dropboxClient(dropbox.WithRetryMaxAttempts(1))
			if err != nil {
				return err
			}

			report := statusReport{
				Checks:      preflight.RunAll(commandCtx(cmd), cfg, client),
				Root:        cfg.Organize.Root,
				LedgerKind:  cfg.Ledger.Backend,
				LedgerPath:  cfg.Ledger.Path,
				LedgerCount: -1,
				DryRun:      cfg.Organize.DryRun,
			}
			report.Checks = append(report.Checks, ledgerCheck(commandCtx(cmd), cfg, &report))

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderStatus(cmd, report)
			}
			if failed := preflight.Failed(report.Checks); len(failed) > 0 {
				return fmt.Errorf("%d status check(s) failed", len(failed))
			}
			return nil
		},
	}
}

// ledgerCheck opens the ledger read-side to count entries. A ledger held by
// a running organizer is reported as busy rather than failed.
func ledgerCheck(ctx context.Context, cfg *config.Config, report *statusReport) preflight.Result {
	const name = "Ledger"
	processed, err := ledger.Open(cfg)
	if err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			return preflight.Result{Name: name, Passed: true, Detail: "in use by a running organizer"}
		}
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	defer processed.Close()
	count, err := processed.Len(ctx)
	if err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	report.LedgerCount = count
	return preflight.Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", cfg.Ledger.Path, count)}
}

func renderStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Settings", colorize) {
		fmt.Fprintln(out, line)
	}
	count := "unknown"
	if report.LedgerCount >= 0 {
		count = strconv.Itoa(report.LedgerCount)
	}
	fmt.Fprintln(out, renderStatusLine("Camera uploads", statusInfo, report.Root, colorize))
	fmt.Fprintln(out, renderStatusLine("Ledger backend", statusInfo, report.LedgerKind, colorize))
	fmt.Fprintln(out, renderStatusLine("Ledger entries", statusInfo, count, colorize))
	fmt.Fprintln(out, renderStatusLine("Dry run", statusInfo, yesNo(report.DryRun), colorize))
}
