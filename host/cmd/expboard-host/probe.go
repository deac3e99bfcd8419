package main

import (
	"fmt"

	"expboard/host/probe"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Read DRV_STATUS from drivers on a Linux SPI bus",
	Long:  `Reads DRV_STATUS once from each driver, one chip select per driver counting up from --spi, and prints the classified faults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := boardConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("spi") {
			cfg.SPI.Device, _ = cmd.Flags().GetString("spi")
		}
		if cmd.Flags().Changed("drivers") {
			cfg.Drivers, _ = cmd.Flags().GetInt("drivers")
		}

		devices, err := probe.Devices(cfg.SPI.Device, cfg.Drivers)
		if err != nil {
			return err
		}
		loggerFor(cmd).Debug("opening spi", "devices", devices, "max_hz", cfg.SPI.MaxHz)

		p, err := probe.Open(devices, cfg.SPI.MaxHz)
		if err != nil {
			return err
		}
		defer p.Close()

		failed := 0
		for _, r := range p.Read() {
			if r.Err != nil {
				failed++
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d drivers did not answer", failed, cfg.Drivers)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().String("spi", "/dev/spidev0.0", "SPI device of the first driver")
	probeCmd.Flags().Int("drivers", 3, "Number of drivers")
}
