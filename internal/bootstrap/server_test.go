package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository/memory"
	"github.com/Domenick1991/seatbooking/internal/service/booking"
	"github.com/Domenick1991/seatbooking/internal/service/flights"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/Domenick1991/seatbooking/internal/service/passengers"
	"github.com/Domenick1991/seatbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func memoryServices(t *testing.T) Services {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := memory.NewStore()
	store.AddFlight(domain.Flight{FromAirport: "SVO", ToAirport: "AER", DepartureTime: time.Now().Add(48 * time.Hour)},
		domain.FareClass{Name: "economy", TotalSeats: 30, RemainingSeats: 30, FareCents: 9900})

	catalog := flights.NewFlightService(store.Flights(), nil)
	return Services{
		Flights: catalog,
		Bookings: booking.NewBookingService(catalog, inventory.NewService(store.SeatPools(), log),
			passengers.NewService(store.Passengers(), log), store.Tickets(), store.Transactor(), log),
		Payments: payment.NewReconciler(store.Tickets(), store.PaymentOrders(), payment.LocalGateway{}, nil, log),
	}
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bookings.swagger.json"), []byte(`{"swagger":"2.0"}`), 0o600))
	cfg := &config.Config{HTTP: config.HTTPConfig{SwaggerDir: dir}}

	router := NewRouter(cfg, log, memoryServices(t), nil)

	w := serve(router, http.MethodGet, "/api/v1/flights")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"to_airport":"AER"`)

	w = serve(router, http.MethodGet, "/api/v1/bookings/UNKNOWN")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = serve(router, http.MethodGet, "/swagger/bookings.swagger.json")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/docs/index.html")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	cfg := &config.Config{HTTP: config.HTTPConfig{CORSOrigins: []string{"http://localhost:3000"}}}
	router := NewRouter(cfg, log, memoryServices(t), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/flights", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthzEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	gwmux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	router := NewRouter(&config.Config{}, log, memoryServices(t), gwmux)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz").Code)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/healthz").Code)
}

func TestWatchHealth(t *testing.T) {
	log, _ := test.NewNullLogger()
	hs := health.NewServer()

	var failing bool
	checks := make(chan struct{}, 16)
	check := func(context.Context) error {
		checks <- struct{}{}
		if failing {
			return errors.New("redis: connection refused")
		}
		return nil
	}

	failing = true
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchHealth(ctx, hs, time.Hour, log, check)
	}()
	<-checks

	require.Eventually(t, func() bool {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
