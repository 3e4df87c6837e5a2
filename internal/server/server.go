package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/go-tangra/go-tangra-hwdb/internal/config"
	"github.com/go-tangra/go-tangra-hwdb/internal/metrics"
	"github.com/go-tangra/go-tangra-hwdb/internal/store"
)

// Run opens the store, starts the HTTP and (optional) gRPC servers and blocks
// until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Server, logger log.Logger, openAPI []byte) error {
	helper := log.NewHelper(log.With(logger, "module", "server"))

	db, err := store.New(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	var reg *prometheus.Registry
	if cfg.EnableMetrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	var m *metrics.SubmitMetrics
	if reg != nil {
		m = metrics.NewSubmitMetrics(reg)
	}

	handler := NewHandler(db, m, logger)

	httpOpts := HTTPOptions{
		Addr:     cfg.Listen,
		Features: cfg.Features,
		Registry: reg,
	}
	if cfg.EnableSwagger {
		httpOpts.OpenAPI = openAPI
	}
	httpSrv := NewHTTPServer(handler, httpOpts, logger)

	var (
		grpcSrv *grpc.Server
		lis     net.Listener
	)
	if cfg.GRPCListen != "" {
		lis, err = net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			return fmt.Errorf("listen gRPC on %s: %w", cfg.GRPCListen, err)
		}
		grpcSrv = NewGRPCServer(handler, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		helper.Infof("HTTP listening on %s (driver: %s)", cfg.Listen, db.Driver())
		if len(httpOpts.OpenAPI) > 0 {
			helper.Infof("Swagger UI available at http://%s/docs/", cfg.Listen)
		}
		return httpSrv.Start(gctx)
	})

	if grpcSrv != nil {
		g.Go(func() error {
			helper.Infof("gRPC listening on %s", cfg.GRPCListen)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		helper.Info("shutting down")
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Stop(context.Background())
	})

	return g.Wait()
}
