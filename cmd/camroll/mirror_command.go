package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"camroll/internal/config"
	"camroll/internal/mirror"
)

func newMirrorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror [remote-path] [local-dir]",
		Short: "Download a Dropbox folder tree to local disk",
		Long: "Download a Dropbox folder tree to local disk. Defaults come from the\n" +
			"[mirror] section; files already present with matching content are skipped.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRun(cmd, func(env runEnv) error {
				remotePath := env.cfg.Mirror.RemotePath
				localRoot := env.cfg.Mirror.LocalRoot
				if len(args) > 0 {
					remotePath = config.NormalizeRemotePath(args[0])
				}
				if len(args) > 1 {
					expanded, err := config.ExpandPath(args[1])
					if err != nil {
						return fmt.Errorf("resolve local dir: %w", err)
					}
					localRoot = expanded
				}

				client, err := ctx.remote(env)
				if err != nil {
					return ctx.reportFailure(env, "mirror", err)
				}
				dryRun := env.cfg.Organize.DryRun
				result, runErr := mirror.New(client, dryRun, env.logger).Run(env.ctx, remotePath, localRoot)

				if ctx.jsonOutput() {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderMirrorResult(result, dryRun))
				}
				if runErr != nil {
					return ctx.reportFailure(env, "mirror", runErr)
				}
				return nil
			})
		},
	}
}
