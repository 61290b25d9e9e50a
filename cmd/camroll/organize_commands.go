package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"camroll/internal/classify"
	"camroll/internal/dropbox"
	"camroll/internal/ledger"
	"camroll/internal/logging"
	"camroll/internal/organize"
	"camroll/internal/organizer"
	"camroll/internal/preflight"
	"camroll/internal/services"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	organizeCmd := &cobra.Command{
		Use:   "organize",
		Short: "Move uploads into month and device folders",
	}
	organizeCmd.AddCommand(newOrganizeDatesCommand(ctx))
	organizeCmd.AddCommand(newOrganizeDevicesCommand(ctx))
	return organizeCmd
}

func newOrganizeDatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "File loose uploads into YYYY-MM folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(cmd, func(env runEnv) error {
				client, err := ctx.remote(env)
				if err != nil {
					return ctx.reportFailure(env, "organize dates", err)
				}
				classifier, err := classify.NewDateClassifier(env.cfg.Organize.DatePattern)
				if err != nil {
					return err
				}
				engine := organize.NewEngine(client, organizer.EngineOptions(env.cfg), ctx.eventSink(env, organize.DefaultRetryHint), env.logger)
				org := organizer.NewDateOrganizer(client, engine, classifier, env.cfg.Organize.Root, env.logger)

				summary, err := org.Run(env.ctx)
				if err != nil {
					return ctx.reportFailure(env, "organize dates", err)
				}
				return ctx.finishRun(cmd, summary)
			})
		},
	}
}

func newOrganizeDevicesCommand(ctx *commandContext) *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Move photos not taken on a configured phone into Other folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(cmd, func(env runEnv) error {
				client, err := ctx.remote(env)
				if err != nil {
					return ctx.reportFailure(env, "organize devices", err)
				}
				processed, err := ledger.Open(env.cfg)
				if err != nil {
					return fmt.Errorf("open ledger: %w", err)
				}
				defer processed.Close()

				opts := classify.DeviceOptionsFromConfig(env.cfg)
				classifier := classify.NewDeviceClassifier(client, processed, opts, env.logger)
				events := ctx.eventSink(env, organizer.DeviceRetryHint)
				engine := organize.NewEngine(client, organizer.DeviceEngineOptions(env.cfg), events, env.logger)

				var skip []string
				for _, name := range []string{opts.OtherFolder, opts.VideoFolder} {
					if name != "" {
						skip = append(skip, name)
					}
				}
				org := organizer.NewDeviceOrganizer(client, engine, classifier, env.cfg.Organize.Root, skip, events, env.logger)

				summary, err := org.Run(env.ctx, latest || env.cfg.Devices.LatestOnly)
				if err != nil {
					return ctx.reportFailure(env, "organize devices", err)
				}
				return ctx.finishRun(cmd, summary)
			})
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "Only process the most recent month folder")
	return cmd
}

// remote builds the Dropbox client and fails fast when the token is rejected.
func (c *commandContext) remote(env runEnv) (*dropbox.Client, error) {
	client, err := c.dropboxClient()
	if err != nil {
		return nil, err
	}
	if check := preflight.CheckDropbox(env.ctx, client); !check.Passed {
		return nil, services.Wrap(services.ErrConfiguration, "dropbox", "preflight", check.Detail, nil)
	}
	return client, nil
}

func (c *commandContext) eventSink(env runEnv, retryHint string) organize.EventSink {
	return organize.MultiSink(
		organize.NewLogSink(env.logger).WithRetryHint(retryHint),
		organize.NewNotifySink(c.notifier(), env.logger),
	)
}

// reportFailure logs and pushes a run-level failure, then returns it.
func (c *commandContext) reportFailure(env runEnv, label string, err error) error {
	logger := logging.WithContext(env.ctx, env.logger)
	logging.ErrorWithContext(logger, label+" failed", "run_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, errorHint(label, err)),
	)
	if notifyErr := c.notifier().NotifyError(env.ctx, err, label); notifyErr != nil {
		logger.Warn("error notification failed", logging.Error(notifyErr))
	}
	return err
}

func (c *commandContext) finishRun(cmd *cobra.Command, summary organize.Summary) error {
	if c.jsonOutput() {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
	}
	if !summary.Clean() {
		return fmt.Errorf("run %s finished with unresolved work", summary.RunID)
	}
	return nil
}

func errorHint(label string, err error) string {
	switch services.ErrorKind(err) {
	case "configuration":
		return "check dropbox.access_token or run 'camroll status'"
	case "not_found":
		return "check organize.root points at an existing folder"
	case "cancelled":
		return "run was interrupted; rerun to finish"
	}
	if strings.HasPrefix(label, "organize devices") {
		return "rerun; files already inspected are skipped until removed from the processed ledger"
	}
	return "rerun; already-moved files are skipped"
}
