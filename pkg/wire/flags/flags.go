// Package flags configures a streamworker process's command-line flags:
// one ConfigureAndParse call that also sets the logrus level, called
// after every flag.* declaration and before any other flag.Parse.
package flags

import (
	"flag"

	log "github.com/sirupsen/logrus"
)

// WorkerConfig is everything cmd/streamworker needs to start listening
// and join the cluster's control/exchange plane.
type WorkerConfig struct {
	ExchangeAddr  string
	ControlAddr   string
	MetricsAddr   string
	StateStoreURL string
	ChannelCap    int
	LogLevel      string
	EnablePprof   bool
}

// ConfigureAndParse registers the worker's flags, parses args, and applies
// the resulting log level -- mirrors pkg/flags.ConfigureAndParse's own
// parse-then-apply-log-level order.
func ConfigureAndParse(args []string) *WorkerConfig {
	fs := flag.NewFlagSet("streamworker", flag.ExitOnError)

	cfg := &WorkerConfig{}
	fs.StringVar(&cfg.ExchangeAddr, "exchange-addr", ":7070", "exchange service grpc listen address (binary envelope codec)")
	fs.StringVar(&cfg.ControlAddr, "control-addr", ":7071", "control service grpc listen address (JSON plan codec)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9990", "admin/metrics http listen address")
	fs.StringVar(&cfg.StateStoreURL, "state-store", "in_memory", "state store backend URL (in_memory, tikv://host,..., hummock+minio://..., hummock+s3://...)")
	fs.IntVar(&cfg.ChannelCap, "channel-capacity", 16, "bounded channel capacity between local actors")
	fs.StringVar(&cfg.LogLevel, "log-level", log.InfoLevel.String(), "log level, must be one of: panic, fatal, error, warn, info, debug")
	fs.BoolVar(&cfg.EnablePprof, "enable-pprof", false, "enable pprof endpoints on the admin server")

	if err := fs.Parse(args); err != nil {
		log.Fatalf("flags: %s", err)
	}

	setLogLevel(cfg.LogLevel)
	return cfg
}

func setLogLevel(logLevel string) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("invalid log-level: %s", logLevel)
	}
	log.SetLevel(level)
}
