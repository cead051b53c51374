package commands

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/metricstore/internal/core/layaway"
	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

type periodView struct {
	Timestamp        string                      `yaml:"timestamp"`
	Requests         uint64                      `yaml:"requests"`
	Metrics          map[string]metric.Aggregate `yaml:"metrics"`
	SlowTransactions []slowtx.SlowTransaction    `yaml:"slow_transactions,omitempty"`
}

func newInspectCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Args:  cobra.NoArgs,
		Short: "Print the layaway file content without modifying it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := openFile(opts)
			if err != nil {
				return err
			}
			return printPayload(cmd.OutOrStdout(), file.Snapshot())
		},
	}
}

func newDrainCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Args:  cobra.NoArgs,
		Short: "Print the layaway file content and empty it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := openFile(opts)
			if err != nil {
				return err
			}
			return printPayload(cmd.OutOrStdout(), file.Drain())
		},
	}
}

func openFile(opts *options) (*layaway.File, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	return layaway.NewFile(cfg.LayawayPath(), log.New(cfg.Level())), nil
}

func printPayload(w io.Writer, payload *layaway.Payload) error {
	views := make([]periodView, 0, payload.Len())
	for _, ts := range payload.Timestamps() {
		p := payload.Periods[ts]
		metrics := p.Metrics()
		view := periodView{
			Timestamp:        ts.String(),
			Requests:         p.RequestCount(),
			Metrics:          make(map[string]metric.Aggregate, len(metrics)),
			SlowTransactions: p.SlowTransactions(),
		}
		for id, agg := range metrics {
			view.Metrics[id.String()] = *agg
		}
		views = append(views, view)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return err
	}
	return enc.Close()
}
