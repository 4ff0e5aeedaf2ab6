// Command streamworker runs one worker process of the streaming runtime:
// it hosts the exchange service (remote edge data transport), the control
// service (fragment lifecycle), and an admin/metrics endpoint, following a
// listen-serve-signal shutdown shape.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/streamdb/flowcore/pkg/admin"
	"github.com/streamdb/flowcore/pkg/streaming/manager"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
	"github.com/streamdb/flowcore/pkg/wire/controlpb"
	"github.com/streamdb/flowcore/pkg/wire/exchangepb"
	"github.com/streamdb/flowcore/pkg/wire/flags"
)

func main() {
	cfg := flags.ConfigureAndParse(os.Args[1:])

	store, err := statestore.Open(cfg.StateStoreURL)
	if err != nil {
		log.Fatalf("failed to open state store %q: %s", cfg.StateStoreURL, err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := manager.NewFragmentManager(rootCtx, cfg.ChannelCap)
	reg := exchangepb.NewRegistry()

	adminServer := admin.NewServer(cfg.MetricsAddr, cfg.EnablePprof)
	go func() {
		log.Infof("starting admin server on %s", cfg.MetricsAddr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("admin server error (%s): %s", cfg.MetricsAddr, err)
		}
	}()

	exchangeLis, err := net.Listen("tcp", cfg.ExchangeAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %s", cfg.ExchangeAddr, err)
	}
	exchangeSrv := grpc.NewServer(
		grpc.ForceServerCodec(exchangepb.Codec{}),
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	exchangepb.RegisterExchangeServer(exchangeSrv, exchangepb.NewServer(reg))
	grpc_prometheus.Register(exchangeSrv)

	controlLis, err := net.Listen("tcp", cfg.ControlAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %s", cfg.ControlAddr, err)
	}
	controlSrv := grpc.NewServer(
		grpc.ForceServerCodec(controlpb.Codec{}),
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
	)
	controlpb.RegisterControlServer(controlSrv, controlpb.NewServer(mgr, store))
	grpc_prometheus.Register(controlSrv)

	go func() {
		log.Infof("starting exchange service on %s", cfg.ExchangeAddr)
		if err := exchangeSrv.Serve(exchangeLis); err != nil {
			log.Errorf("exchange server error: %s", err)
		}
	}()
	go func() {
		log.Infof("starting control service on %s", cfg.ControlAddr)
		if err := controlSrv.Serve(controlLis); err != nil {
			log.Errorf("control server error: %s", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	cancel()
	controlSrv.GracefulStop()
	exchangeSrv.GracefulStop()
	if err := adminServer.Close(); err != nil {
		log.Errorf("admin server close error: %s", err)
	}

	if err := mgr.WaitAll(); err != nil {
		log.Errorf("actor runtime exited with error: %s", err)
		os.Exit(1)
	}
}
