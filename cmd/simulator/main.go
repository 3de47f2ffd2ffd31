/*
Package main is the field sensor simulator.

It publishes a full telemetry payload for every simulated device to
sensor/{device_id}/data on a fixed interval, so the ingest, storage and
advisory pipeline can be exercised without hardware.

Usage:

	agri-simulator --broker tcp://localhost:1883 --interval 10s
	agri-simulator --devices SOIL-001,SOIL-002,DHT-001:AIR_HUMIDITY_TEMPERATURE
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/mqtt"
	"agri-advisor/internal/simulator"
)

var version = "dev"

type options struct {
	broker         string
	username       string
	password       string
	clientIDPrefix string
	topic          string
	devices        string
	interval       time.Duration
	seed           int64
	logLevel       string
}

func main() {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:     "agri-simulator",
		Short:   "Publish simulated field telemetry over MQTT",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.broker, "broker", "b", "tcp://localhost:1883", "MQTT broker URL")
	flags.StringVar(&opts.username, "username", "", "MQTT username")
	flags.StringVar(&opts.password, "password", "", "MQTT password")
	flags.StringVar(&opts.clientIDPrefix, "client-id-prefix", "AgriSimulator", "MQTT client ID prefix")
	flags.StringVarP(&opts.topic, "topic", "t", "sensor/{device_id}/data", "Telemetry topic pattern")
	flags.StringVarP(&opts.devices, "devices", "d", "SOIL-001,DHT-001,LIGHT-001", "Devices as ID or ID:TYPE, comma separated")
	flags.DurationVarP(&opts.interval, "interval", "i", 10*time.Second, "Publish interval")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed (0 uses the current time)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := logger.Init(logger.Options{Level: opts.logLevel, ToConsole: true}); err != nil {
		return err
	}
	defer logger.Close()

	devices, err := simulator.ParseDevices(opts.devices)
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	clientID := fmt.Sprintf("%s-%s", opts.clientIDPrefix, uuid.New().String()[:8])
	logger.Printf("Simulator: Connecting to MQTT broker at %s as %s...", opts.broker, clientID)

	client, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   opts.broker,
		ClientID: clientID,
		Username: opts.username,
		Password: opts.password,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	publisher := mqtt.NewPublisher(client.GetNativeClient(), mqtt.PublisherConfig{TelemetryTopic: opts.topic}, nil)
	runner := simulator.NewRunner(publisher, devices, opts.interval, seed)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Println("Press Ctrl+C to stop.")
	runner.Start(ctx)
	return nil
}
