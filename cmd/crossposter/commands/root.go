// Package commands holds the crossposter CLI
package commands

import (
	"github.com/spf13/cobra"

	"crossposter/internal/platform/config"
	"crossposter/internal/platform/logger"
)

var envFiles []string

// NewRootCmd returns the root command; with no subcommand it serves
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crossposter",
		Short:         "Approval gated cross posting of tagged chat messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			logger.Init(logger.FromEnv())
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newCheckCmd(), newVersionCmd())
	return root
}
