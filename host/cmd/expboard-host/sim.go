package main

import (
	"fmt"

	"expboard/host/sim"

	"github.com/spf13/cobra"
)

var simCmd = &cobra.Command{
	Use:   "sim <scenario.yaml>",
	Short: "Replay a scenario through the supervisor engine",
	Long:  `Runs a scripted sequence of rail voltages and driver status words through a real supervisor and prints the event trace and the final diagnostics line.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sim.LoadScenarioFile(args[0])
		if err != nil {
			return err
		}
		loggerFor(cmd).Debug("scenario loaded", "name", s.Name, "steps", len(s.Steps), "duration_ms", s.DurationMs)

		res, err := sim.Run(s)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), res.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simCmd)
}
