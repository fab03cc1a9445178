package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"foodcart/internal/config"
	"foodcart/internal/handler"
	"foodcart/internal/metrics"
	"foodcart/internal/middleware"
	"foodcart/internal/repository"
	"foodcart/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Cart    *handler.CartHandler
	Payment *handler.PaymentHandler
	Order   *handler.OrderHandler
	Address *handler.AddressHandler
}

type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Users    repository.UserRepository
	Handlers Handlers
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger, d.Metrics))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.Use(middleware.AuthJWT(d.Config))
	api.Use(middleware.TokenVersionGuard(d.Users))

	d.Handlers.Cart.RegisterRoutes(api)
	d.Handlers.Payment.RegisterRoutes(api)
	d.Handlers.Order.RegisterRoutes(api)
	d.Handlers.Address.RegisterRoutes(api)

	return e
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
