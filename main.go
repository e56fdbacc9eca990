package main // import "mspfwd"

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mspfwd/bridge"
	"mspfwd/internal/metrics"
	"mspfwd/msp"
)

const appVersion = "1.0.0"

var (
	portName    string
	baudRate    int
	udpAddr     string
	maxPayload  int
	readTimeout time.Duration
	logInterval time.Duration
	statsAddr   string
	debug       bool
	trace       bool
)

var rootCmd = &cobra.Command{
	Use:   "mspfwd",
	Short: "Forward MSP DisplayPort frames from a UART to UDP",
	Long: `mspfwd reads the raw MSP reply stream from a flight controller UART,
delimits and validates individual MSP frames, and forwards each one as a
single UDP datagram to a ground station OSD renderer.

The UART is read-only: mspfwd never writes to the flight controller. UDP
delivery is best effort, matching the semantics of the radio link that
carries it.`,
	Version:      appVersion,
	SilenceUsage: true,
	RunE:         run,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports usable as a telemetry source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := bridge.AvailablePorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&portName, "port", "p", "", "Serial device, or tcp:host:port for a network tap")
	rootCmd.Flags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.Flags().StringVarP(&udpAddr, "udp", "u", "127.0.0.1:14560", "Destination host:port for forwarded datagrams")
	rootCmd.Flags().IntVar(&maxPayload, "max-payload", msp.DefaultMaxPayload, "Largest declared payload size accepted before resync")
	rootCmd.Flags().DurationVar(&readTimeout, "read-timeout", 20*time.Millisecond, "Bounded wait for each source read")
	rootCmd.Flags().DurationVar(&logInterval, "log-interval", time.Minute, "Interval between session summary log lines (0 disables)")
	rootCmd.Flags().StringVar(&statsAddr, "stats-addr", "", "Serve Prometheus metrics on this host:port (disabled when empty)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Log every forwarded frame")
	rootCmd.Flags().BoolVar(&trace, "trace", false, "Log every byte read (very noisy)")
	rootCmd.MarkFlagRequired("port")
	rootCmd.AddCommand(portsCmd)
}

func run(cmd *cobra.Command, args []string) error {
	switch {
	case trace:
		log.SetLevel(log.TraceLevel)
	case debug:
		log.SetLevel(log.DebugLevel)
	}

	src, err := bridge.OpenSource(portName, baudRate, readTimeout)
	if err != nil {
		return fmt.Errorf("opening %s: %w", portName, err)
	}
	defer src.Close()

	sink, err := bridge.NewUDPSink(udpAddr)
	if err != nil {
		return fmt.Errorf("connecting UDP sink: %w", err)
	}
	defer sink.Close()

	b := bridge.New(src, sink)
	b.Decoder().MaxPayload = maxPayload
	b.LogInterval = logInterval

	if statsAddr != "" {
		reg := metrics.NewRegistry()
		b.Metrics = metrics.NewSession(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		go func() {
			if err := http.ListenAndServe(statsAddr, mux); err != nil {
				log.Warnf("stats server: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("%s@%d -> udp %s", portName, baudRate, sink.RemoteAddr())
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
