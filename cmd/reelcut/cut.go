package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/logging"
	"github.com/keagan/reelcut/internal/pipeline"
	"github.com/keagan/reelcut/pkg/util"
)

var cutOverrides, planOverrides overrides

var cutCmd = &cobra.Command{
	Use:   "cut [input video]",
	Short: "Build a highlight reel from a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd, &cutOverrides)
		if err != nil {
			return err
		}

		pipe, err := pipeline.NewWithFFmpeg(log.Logger, cfg,
			pipeline.WithObserver(pipeline.NewLogObserver(log.Logger)))
		if err != nil {
			return err
		}

		cli := logging.WithComponent("cli")
		res, err := pipe.Run(cmd.Context(), args[0])
		if err != nil {
			if pipeline.IsUserError(err) {
				cli.Warn().Msg("nothing was written; check the input and configuration")
			}
			return err
		}

		cli.Info().
			Str("output", res.OutputPath).
			Int("clips", res.Plan.Survivors.Len()).
			Uint64("seed", res.Seed).
			Dur("elapsed", res.Elapsed).
			Msg("done")

		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [input video]",
	Short: "Print which clips a cut would keep, without encoding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd, &planOverrides)
		if err != nil {
			return err
		}

		pipe, err := pipeline.NewWithFFmpeg(log.Logger, cfg)
		if err != nil {
			return err
		}

		res, err := pipe.Plan(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(newPlanReport(res)); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	cutOverrides.register(cutCmd)
	planOverrides.register(planCmd)
}

// effectiveConfig applies command-line overrides to a copy of the loaded config
func effectiveConfig(cmd *cobra.Command, o *overrides) (*config.Config, error) {
	cfg := *config.FromContext(cmd.Context())
	if err := o.apply(cmd, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type clipReport struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type planReport struct {
	Input      string       `yaml:"input"`
	Seed       uint64       `yaml:"seed"`
	Mode       string       `yaml:"mode"`
	Source     string       `yaml:"source_duration"`
	Target     string       `yaml:"target"`
	Boundary   string       `yaml:"boundary"`
	Candidates int          `yaml:"candidates"`
	Deleted    int          `yaml:"deleted"`
	Output     string       `yaml:"output_duration"`
	Filters    []string     `yaml:"filters,omitempty"`
	Clips      []clipReport `yaml:"clips"`
}

func newPlanReport(res *pipeline.Result) planReport {
	plan := res.Plan
	report := planReport{
		Input:      res.Input,
		Seed:       res.Seed,
		Mode:       string(plan.Mode),
		Source:     util.FormatDuration(plan.Total),
		Target:     util.FormatDuration(plan.Target),
		Boundary:   util.FormatDuration(plan.Boundary),
		Candidates: plan.Candidates.Len(),
		Deleted:    plan.Deleted,
		Output:     util.FormatDuration(plan.OutputDuration()),
		Filters:    res.Filters,
	}
	for _, c := range plan.Survivors.All() {
		report.Clips = append(report.Clips, clipReport{
			ID:    c.ID(),
			Start: util.FormatDuration(c.Start),
			End:   util.FormatDuration(c.End),
		})
	}
	return report
}
