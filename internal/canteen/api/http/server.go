package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	brokermessage "campus-canteen/internal/canteen/adapter/broker_message"
	"campus-canteen/internal/canteen/api/http/handle"
	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/app/services"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/replica"
	"campus-canteen/internal/store"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

var ErrServerClosed = errors.New("Server closed")

const visitorTTL = 3 * time.Minute

// surface is the part of a replica the server drives.
type surface interface {
	Run(ctx context.Context) error
	IsReady() bool
}

type Server struct {
	router  chi.Router
	cfg     *config.Config
	srv     *http.Server
	params  *core.CanteenParams
	mylog   logger.Logger
	store   storecore.IStore
	mb      core.IPublisher
	toast   *notify.Toast
	ctx     context.Context
	appCtx  context.Context
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopRun context.CancelFunc

	surfaces map[string]surface
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, params *core.CanteenParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:      ctx,
		appCtx:   appCtx,
		cfg:      cfg,
		params:   params,
		mylog:    mylog,
		surfaces: make(map[string]surface),
	}
}

// Run opens the store and broker, starts one replica per surface and serves
// HTTP. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeStore(); err != nil {
		mylog.Action("store_connection_failed").Error("Failed to open store", err)
		return err
	}
	mylog.Action("store_connected").Info("Store opened", "driver", s.cfg.Store.Driver)

	if err := s.initializeRabbitMQ(); err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}

	s.Configure()

	runCtx, stop := context.WithCancel(s.appCtx)
	s.mu.Lock()
	s.stopRun = stop
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.params.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.runSurfaces(runCtx); err != nil {
			s.mylog.Action("replicas_failed").Error("Replica stopped with error", err)
		}
	}()

	mylog.WithGroup("details").With("port", s.params.Port, "poll_interval", s.cfg.Sync.PollInterval.String()).Info("server is running")
	return s.startHTTPServer()
}

func (s *Server) runSurfaces(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, sf := range s.surfaces {
		g.Go(func() error {
			if err := sf.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.stopRun != nil {
		s.stopRun()
	}
	s.wg.Wait()

	if s.toast != nil {
		s.toast.Stop()
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		s.mylog.Action("mb_closed").Info("Message broker closed")
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.mylog.Action("store_close_failed").Error("Failed to close store", err)
			return fmt.Errorf("store close: %w", err)
		}
		s.mylog.Action("store_closed").Info("Store closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeStore() error {
	st, err := store.Open(s.appCtx, s.cfg, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st
	return nil
}

// initializeRabbitMQ falls back to a publisher that drops events when no
// broker host is configured.
func (s *Server) initializeRabbitMQ() error {
	if !s.cfg.RMQ.IsConfigured() {
		s.mylog.Action("mb_disabled").Warn("No message broker configured, order events are not published")
		s.mb = brokermessage.NewNop(s.mylog)
		return nil
	}
	mb, err := brokermessage.New(s.appCtx, *s.cfg.RMQ, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mylog.Action("mb_connected").Info("Successful message broker connection")
	s.mb = mb
	return nil
}

// Configure builds a replica and a service per surface and registers routes.
func (s *Server) Configure() {
	poll := s.cfg.Sync.PollInterval
	orderSrc := replica.OrderSource(s.store)
	menuSrc := replica.MenuSource(s.store)

	customerMenu := replica.New("customer_menu", menuSrc, replica.Append, poll, s.mylog)
	customerOrders := replica.New("customer_orders", orderSrc, replica.Prepend, poll, s.mylog)
	kitchenOrders := replica.New("kitchen_orders", orderSrc, replica.Prepend, poll, s.mylog)
	adminOrders := replica.New("admin_orders", orderSrc, replica.Prepend, poll, s.mylog)
	adminMenu := replica.New("admin_menu", menuSrc, replica.Append, poll, s.mylog)

	s.surfaces = map[string]surface{
		"customer_menu":   customerMenu,
		"customer_orders": customerOrders,
		"kitchen_orders":  kitchenOrders,
		"admin_orders":    adminOrders,
		"admin_menu":      adminMenu,
	}
	s.toast = notify.NewToast(s.cfg.Notification.DismissAfter)
	canteen := *s.cfg.Canteen

	customerService := services.NewCustomerService(s.ctx, s.store, customerMenu, customerOrders, s.mb, s.toast, canteen, s.mylog.With("surface", "customer"))
	kitchenService := services.NewKitchenService(s.ctx, s.store, kitchenOrders, s.mb, s.mylog.With("surface", "kitchen"))
	adminService := services.NewAdminService(s.ctx, s.store, adminOrders, adminMenu, s.mb, canteen, s.mylog.With("surface", "admin"))
	menuService := services.NewMenuService(s.ctx, s.store, adminMenu, s.mylog.With("surface", "admin"))

	customerHandler := handle.NewCustomerHandler(customerService, s.mylog)
	kitchenHandler := handle.NewKitchenHandler(kitchenService, s.mylog)
	adminHandler := handle.NewAdminHandler(adminService, s.mylog)
	menuHandler := handle.NewMenuHandler(menuService, s.mylog)

	limiter := NewRateLimiter(s.appCtx, s.params.CheckoutRate, s.params.CheckoutBurst, visitorTTL)

	r := chi.NewRouter()
	r.Use(trustedRealIP(s.params.TrustedProxies))
	r.Use(requestID(s.mylog))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health())

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", customerHandler.Menu())
		r.Get("/tables", customerHandler.Tables())
		r.With(limiter.Middleware).Post("/orders", customerHandler.Checkout())
		r.Get("/orders/status", customerHandler.Status())
		r.Get("/notification", customerHandler.Notification())
		r.Delete("/notification", customerHandler.DismissNotification())

		r.Route("/kitchen", func(r chi.Router) {
			r.Get("/board", kitchenHandler.Board())
			r.Post("/orders/{id}/advance", kitchenHandler.Advance())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", adminHandler.Orders())
			r.Patch("/orders/{id}/status", adminHandler.SetStatus())
			r.Post("/orders/{id}/mark-paid", adminHandler.MarkPaid())
			r.Delete("/orders/{id}", adminHandler.Delete())
			r.Get("/orders/{id}/history", adminHandler.History())
			r.Get("/dashboard", adminHandler.Dashboard())
			r.Get("/reports", adminHandler.Reports())
			r.Get("/settings", adminHandler.Settings())

			r.Get("/menu", menuHandler.List())
			r.Post("/menu", menuHandler.Create())
			r.Put("/menu/{id}", menuHandler.Update())
			r.Patch("/menu/{id}/availability", menuHandler.SetAvailability())
			r.Delete("/menu/{id}", menuHandler.Delete())
		})
	})

	s.router = r
}

// health reports which surfaces finished their first load.
func (s *Server) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := make(map[string]bool, len(s.surfaces))
		all := true
		for name, sf := range s.surfaces {
			ready[name] = sf.IsReady()
			all = all && ready[name]
		}
		status := "ok"
		if !all {
			status = "loading"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   status,
			"store":    s.cfg.Store.Driver,
			"surfaces": ready,
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
		"code":  code,
	})
}

// compile-time checks for the replica types the server drives
var (
	_ surface = (*replica.Replica[models.Order])(nil)
	_ surface = (*replica.Replica[models.MenuItem])(nil)
)
