// Package main starts the stub form endpoint used for local development:
// it records every delivery and answers with canned replies.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/config"
	"github.com/atinyakov/formrelay/internal/db"
	"github.com/atinyakov/formrelay/internal/logger"
	"github.com/atinyakov/formrelay/internal/middleware"
	"github.com/atinyakov/formrelay/internal/repository"
	"github.com/atinyakov/formrelay/internal/server/handler/http"
	"github.com/atinyakov/formrelay/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// deliveryStore is what the service and the cleaner need from a repository.
type deliveryStore interface {
	service.DeliveryRepository
	db.Purger
}

func main() {
	// Parse command-line and environment configuration.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the delivery log: PostgreSQL when a DSN is given, memory otherwise.
	var store deliveryStore
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()
		store = repository.NewPostgresDeliveryRepository(postgresDB)
	} else {
		zapLogger.Info("no database configured, keeping deliveries in memory")
		store = repository.NewMemoryDeliveryRepository()
	}

	cleaner := db.NewDeliveryCleaner(store,
		time.Duration(options.CleanInterval),
		time.Duration(options.Retention),
		zapLogger,
	)
	go cleaner.Run(ctx)

	stub := &http.StubHandler{
		StubService: service.NewStubService(store),
		FailPost:    options.FailPost,
		Log:         zapLogger,
	}
	router := http.NewRouter(stub, options.AllowedOrigins, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           middleware.ClientIdentity(options.ClientCA != "")(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCert != "" && options.TLSKey != ""
	if useTLS {
		tlsConfig, err := serverTLSConfig(options.TLSCert, options.TLSKey, options.ClientCA)
		if err != nil {
			zapLogger.Fatal("failed to configure TLS", zap.Error(err))
		}
		server.TLSConfig = tlsConfig
	} else if options.ClientCA != "" {
		zapLogger.Fatal("client-ca requires tls-cert and tls-key")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting stub endpoint",
		zap.String("addr", options.Addr),
		zap.Strings("allowed_origins", options.AllowedOrigins),
		zap.Bool("fail_post", options.FailPost),
		zap.Bool("tls", useTLS),
	)
	if useTLS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}

// serverTLSConfig loads the server key pair. With clientCA set, client
// certificates signed by it are verified when presented.
func serverTLSConfig(certFile, keyFile, clientCA string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server cert/key: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if clientCA == "" {
		return tlsConfig, nil
	}

	caCert, err := os.ReadFile(clientCA)
	if err != nil {
		return nil, fmt.Errorf("read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("parse client CA %s", clientCA)
	}
	tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	tlsConfig.ClientCAs = pool
	return tlsConfig, nil
}
