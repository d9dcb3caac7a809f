// Package remote exposes a Session Manager's AgentClient over gRPC
// (service topology and message shapes matching steer.proto, served
// with a JSON codec — see codec.go) plus a small chi-routed HTTP surface
// for health checks and pprof.
package remote

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/BrendanGraham14/steer-sub008/internal/appclient"
)

// Config holds the remote server's listen addresses and timeouts.
type Config struct {
	GRPCPort     int
	HTTPPort     int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		GRPCPort:     7451,
		HTTPPort:     7452,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
	}
}

// Server runs the gRPC Agent service and an HTTP health/debug surface
// side by side.
type Server struct {
	cfg *Config

	grpcSrv    *grpc.Server
	healthSrv  *health.Server
	httpSrv    *http.Server
	router     *chi.Mux
	grpcLis    net.Listener
}

// New wires a Server around client, the AgentClient every RPC handler
// delegates to.
func New(cfg *Config, client appclient.AgentClient) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	grpcSrv := grpc.NewServer()
	grpcSrv.RegisterService(&serviceDesc, &agentServer{client: client})

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	s := &Server{cfg: cfg, grpcSrv: grpcSrv, healthSrv: healthSrv, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.cfg.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			pprof.Handler(chi.URLParam(r, "name")).ServeHTTP(w, r)
		})
	})
}

// Start blocks serving both the gRPC and HTTP listeners; it returns
// when either fails or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("remote: listen grpc: %w", err)
	}
	s.grpcLis = lis

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcSrv.Serve(lis) }()
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		s.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) {
	s.healthSrv.Shutdown()
	s.grpcSrv.GracefulStop()
	if s.httpSrv != nil {
		_ = s.httpSrv.Shutdown(ctx)
	}
}

// Router exposes the chi router for testing.
func (s *Server) Router() *chi.Mux { return s.router }
