package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/seatbooking/api"
	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/logger"
	"github.com/Domenick1991/seatbooking/internal/service/booking"
	"github.com/Domenick1991/seatbooking/internal/service/flights"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthCheckInterval = 10 * time.Second

type Services struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Payments payment.PaymentUseCase
}

// HealthCheck reports whether a dependency is usable. Any failing check marks the
// service NOT_SERVING until the next round.
type HealthCheck func(ctx context.Context) error

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
	healthConn *grpc.ClientConn
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, svc Services, checks ...HealthCheck) error {
	s, err := newServers(cfg, log, svc)
	if err != nil {
		return err
	}
	defer s.healthConn.Close()

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go watchHealth(watchCtx, s.health, healthCheckInterval, log, checks...)

	log.WithFields(logrus.Fields{"http": cfg.HTTP.Address, "grpc": cfg.GRPC.Address}).Info("servers started")

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		log.Info("shutting down servers")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpErr := s.httpServer.Shutdown(shutdownCtx)
		s.grpcServer.GracefulStop()
		if httpErr != nil {
			return fmt.Errorf("shutdown http server: %w", httpErr)
		}
		return nil
	}
}

func newServers(cfg *config.Config, log logrus.FieldLogger, svc Services) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health endpoint: %w", err)
	}
	gwmux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(cfg, log, svc, gwmux),
			ReadHeaderTimeout: 5 * time.Second,
		},
		health:     healthSrv,
		healthConn: conn,
	}, nil
}

// NewRouter wires the REST API together with the operational endpoints. healthz serves /healthz.
func NewRouter(cfg *config.Config, log logrus.FieldLogger, svc Services, healthz http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(log), cors.New(corsConfig(cfg.HTTP.CORSOrigins)))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if healthz != nil {
		router.GET("/healthz", gin.WrapH(healthz))
	}
	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/bookings.swagger.json"))))
	}

	v1 := router.Group("/api/v1", api.Authenticate(cfg.Auth.JWTSecret))
	api.NewFlightHandler(svc.Flights, log).Register(v1)
	api.NewBookingHandler(svc.Bookings, log).Register(v1)
	api.NewPaymentHandler(svc.Payments, log).Register(v1)
	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// watchHealth runs checks immediately and then on every interval until ctx is canceled.
func watchHealth(ctx context.Context, hs *health.Server, interval time.Duration, log logrus.FieldLogger, checks ...HealthCheck) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		for _, check := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, interval/2)
			err := check(checkCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).Warn("health check failed")
				status = healthpb.HealthCheckResponse_NOT_SERVING
				break
			}
		}
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
