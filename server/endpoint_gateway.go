package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n9te9/go-graphql-federation-gateway/config"
	"github.com/n9te9/go-graphql-federation-gateway/registry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RunEndpointGateway serves the multi-endpoint EndpointGateway described by
// the config file at path, the counterpart to Run for the teacher's original
// single-endpoint gateway. A registry.Registry is mounted alongside it at
// registryAddr so downstream services can register/update subgraphs at
// runtime; every registration batch is pushed into the matching
// DynamicFederationSource via OnRegister, so a schema change never requires
// restarting the process.
func RunEndpointGateway(configPath, addr, registryAddr string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	gw, dynSources, err := config.Build(cfg)
	if err != nil {
		log.Fatalf("failed to build endpoint gateway: %v", err)
	}

	reg := registry.NewRegistry()
	reg.Start()
	reg.OnRegister = func(graphs []registry.RegistrationGraph) {
		for _, g := range graphs {
			for id, dyn := range dynSources {
				if err := dyn.Update(g.Name, g.SDL, g.Host); err != nil {
					slog.Error("failed to apply schema update", "source", id, "subgraph", g.Name, "error", err)
				}
			}
		}
	}

	gwHandler := otelhttp.NewHandler(http.Handler(gw), "federation-gateway")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{Addr: addr, Handler: gwHandler}
	registrySrv := &http.Server{Addr: registryAddr, Handler: reg}

	go func() {
		log.Printf("starting endpoint gateway on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("endpoint gateway failed: %v", err)
		}
	}()

	go func() {
		log.Printf("starting registry on %s", registryAddr)
		if err := registrySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("registry failed: %v", err)
		}
	}()

	<-ctx.Done()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Println("shutting down endpoint gateway...")
	if err := srv.Shutdown(timeoutCtx); err != nil {
		log.Fatalf("failed to shutdown endpoint gateway: %v", err)
	}
	if err := registrySrv.Shutdown(timeoutCtx); err != nil {
		log.Fatalf("failed to shutdown registry: %v", err)
	}

	log.Println("endpoint gateway stopped")
}
