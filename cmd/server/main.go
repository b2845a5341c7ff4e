package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"liyu1981.xyz/greenhouse-telemetry/pkg/auth"
	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/config"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	iotGrpc "liyu1981.xyz/greenhouse-telemetry/pkg/grpc"
	iotHttp "liyu1981.xyz/greenhouse-telemetry/pkg/http"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	iotMqtt "liyu1981.xyz/greenhouse-telemetry/pkg/mqtt"
)

func main() {
	defer common.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration, copy .env.example to .env first if in development: ", err)
	}

	var dbInstance *db.DB
	switch cfg.DBType {
	case config.DBTypeFile:
		dbInstance = db.GetInstance(db.UseSqliteDialector(cfg.DBPath))
	case config.DBTypeMemory:
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	case config.DBTypePostgres:
		dbInstance = db.GetInstance(db.UsePostgresDialector(cfg.DBDSN))
	}
	defer func() { _ = dbInstance.Close() }()

	cipher, err := channel.New(cfg.AESKey)
	if err != nil {
		log.Fatal("Invalid IOT_AES_KEY: ", err)
	}

	logger := common.GetLogger()

	iotCore := (&iot.IOT{
		Db:               *dbInstance,
		Cipher:           cipher,
		RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		StoreTimeout:     cfg.StoreTimeout,
		LivenessWindow:   cfg.LivenessWindow,
		ChartMaxPoints:   cfg.ChartMaxPoints,
	}).WithDefaultServices()

	logger.Info("iot core created with:",
		zap.Float64("default_rate", cfg.DefaultRate),
		zap.Int("default_burst", cfg.DefaultBurst),
		zap.String("db_type", cfg.DBType),
		zap.Duration("store_timeout", cfg.StoreTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GRPCHostPort != "" {
		grpcServer := iotGrpc.NewServer(iotCore)

		listener, err := net.Listen("tcp", cfg.GRPCHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("Starting gRPC server on " + cfg.GRPCHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
				stop()
			}
		}()
		defer grpcServer.GracefulStop()
	}

	if cfg.MQTT.Enabled() {
		mqttClient := iotMqtt.NewClient(cfg.MQTT, &iotMqtt.Handler{Iot: iotCore})
		if err := mqttClient.Connect(); err != nil {
			log.Fatalf("mqtt ingest failed to start: %v", err)
		}
		defer mqttClient.Disconnect()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rs := &iotHttp.RestfulServer{
		Server:      gin.New(),
		Iot:         iotCore,
		Auth:        &auth.Service{Conn: dbInstance.Conn, Issuer: auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)},
		CorsOrigins: cfg.CorsOrigins,
	}
	if cfg.AdminUsername != "" {
		created, err := rs.Auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatal("Failed to bootstrap admin user: ", err)
		}
		logger.Info("admin user checked", zap.String("username", cfg.AdminUsername), zap.Bool("created", created))
	}

	rs.Server.Use(gin.Recovery())
	rs.Setup()

	httpServer := &http.Server{
		Addr:              cfg.HTTPHostPort,
		Handler:           rs.Server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}
