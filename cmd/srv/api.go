package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questx-lab/gemdrops/internal/middleware"
	"github.com/questx-lab/gemdrops/pkg/prometheus"
	"github.com/questx-lab/gemdrops/pkg/router"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadContext()
	s.loadDatabase()
	s.loadPublisher()
	s.loadRedis()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	cfg := s.configs.ApiServer
	s.server = &http.Server{
		Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.router.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server gracefully: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on port: %s", cfg.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.AddCloser(middleware.Logger())
	s.router.AddCloser(middleware.Prometheus())
	s.router.Handle(http.MethodGet, "/metrics", prometheus.NewHandler())

	// Public API.
	{
		router.GET(s.router, "/offerings", s.offeringDomain.GetList)
		router.GET(s.router, "/offerings/:id", s.offeringDomain.Get)
		router.GET(s.router, "/raffles", s.raffleDomain.GetList)
		router.GET(s.router, "/raffles/:id", s.raffleDomain.Get)
		router.GET(s.router, "/raffles/:id/result", s.raffleDomain.GetResult)
	}

	// These following APIs need the user identity forwarded by the gateway.
	userRouter := s.router.Branch()
	userRouter.Before(middleware.RequireUser())
	{
		router.POST(userRouter, "/offerings/:id/purchase", s.offeringDomain.Purchase)
		router.POST(userRouter, "/raffles/:id/slots", s.raffleDomain.BuySlots)

		router.GET(userRouter, "/vault", s.vaultDomain.Get)
		router.POST(userRouter, "/vault/refund", s.vaultDomain.Refund)
		router.POST(userRouter, "/vault/ship", s.vaultDomain.Ship)

		router.GET(userRouter, "/balance", s.tokenDomain.GetBalance)
		router.GET(userRouter, "/ledger", s.tokenDomain.GetLedger)
	}

	adminRouter := s.router.Branch()
	adminRouter.Before(middleware.OnlyAdmin())
	{
		router.POST(adminRouter, "/admin/card-templates", s.offeringDomain.CreateCardTemplate)
		router.POST(adminRouter, "/admin/offerings", s.offeringDomain.Create)
		router.POST(adminRouter, "/admin/offerings/:id/active", s.offeringDomain.UpdateActive)
		router.GET(adminRouter, "/admin/draws", s.offeringDomain.GetDrawRecords)

		router.POST(adminRouter, "/admin/raffles", s.raffleDomain.Create)

		router.POST(adminRouter, "/admin/tokens/credit", s.tokenDomain.Credit)
		router.GET(adminRouter, "/admin/reconcile", s.tokenDomain.Reconcile)

		router.POST(adminRouter, "/admin/vault/fulfill", s.vaultDomain.FulfillShipment)
	}
}
