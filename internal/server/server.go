package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"eyewear/internal/config"
	"eyewear/internal/handler"
	"eyewear/internal/middleware"
	"eyewear/internal/observability"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Deps struct {
	Config     config.Config
	Logger     *zap.Logger
	Metrics    *observability.ServerMetrics
	Gatherer   prometheus.Gatherer
	Orders     *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
}

// echoを組み立てる（ミドルウェアとルート登録まで）
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		e.Use(middleware.Metrics(d.Metrics))
	}

	RegisterRoutes(e, d)
	return e
}

func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(observability.Handler(d.Gatherer)))
	}

	//ログイン必須
	orders := e.Group("/orders", middleware.AuthJWT(d.Config))
	d.Orders.RegisterRoutes(orders)

	//管理者だけ
	admin := e.Group("/admin/orders", middleware.AuthJWT(d.Config), middleware.AdminRoleGuard())
	d.AdminOrder.RegisterRoutes(admin)
}

// ctxが終わったら受付を止めて、処理中のリクエストを待つ
func Run(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("server shutting down")
	return e.Shutdown(shutdownCtx)
}
