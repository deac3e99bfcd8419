package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expboard/config"
	"expboard/core"
	"expboard/host/mcu"
	"expboard/host/monitor"
	"expboard/host/serial"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll a board and serve its health as metrics",
	Long:  `Connects to the board over USB serial, polls driver status and stall actions, logs every change and serves /metrics, /status and /healthz.`,
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringP("device", "d", "", "Serial device (default from the board description)")
	monitorCmd.Flags().String("listen", ":2112", "HTTP listen address, empty to disable")
	monitorCmd.Flags().Duration("interval", time.Second, "Status poll interval")
	monitorCmd.Flags().Bool("push-config", false, "Reset the supervisor and send the per-driver settings before polling")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	log := loggerFor(cmd)
	cfg, err := boardConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		cfg.Serial.Device, _ = cmd.Flags().GetString("device")
	}
	listen, _ := cmd.Flags().GetString("listen")
	interval, _ := cmd.Flags().GetDuration("interval")
	push, _ := cmd.Flags().GetBool("push-config")

	board, err := mcu.Connect(serial.FromBoard(cfg.Serial), log)
	if err != nil {
		return err
	}
	defer board.Close()
	log.Info("connected", "device", cfg.Serial.Device, "drivers", cfg.Drivers)

	if push {
		if err := pushConfig(board, cfg.DriverSettings); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := monitor.New(cfg.Drivers, log)

	var srv *http.Server
	if listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		srv = &http.Server{Addr: listen, Handler: monitor.NewHandler(m, reg, log)}
		go func() {
			log.Info("serving metrics", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", "error", err)
				stop()
			}
		}()
	}

	err = m.Run(ctx, board, interval)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
	}
	if dropped := board.Dropped(); dropped > 0 {
		log.Warn("frames dropped", "count", dropped)
	}
	return err
}

type configSetter interface {
	ResetSupervisor() error
	ConfigDriver(driver core.DriverIndex, noPoll bool, action core.StallAction) error
}

// pushConfig resets the board engine so it accepts driver settings again,
// then sends each one.
func pushConfig(board configSetter, settings []config.DriverConfig) error {
	if err := board.ResetSupervisor(); err != nil {
		return err
	}
	for _, d := range settings {
		action, ok := core.ParseStallAction(d.Stall)
		if !ok {
			return errors.New("unknown stall action " + d.Stall)
		}
		if err := board.ConfigDriver(core.DriverIndex(d.Index), d.NoPoll, action); err != nil {
			return err
		}
	}
	return nil
}
