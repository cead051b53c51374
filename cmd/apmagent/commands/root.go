package commands

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/metricstore/internal/config"
)

type options struct {
	configPath string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "apmagent",
		Short:         "Minute-bucketed metric aggregation with a shared layaway file",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newInspectCommand(opts),
		newDrainCommand(opts),
	)

	return rootCmd
}

func (o *options) load() (*config.Config, error) {
	return config.Load(o.configPath)
}
