package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/unicafe/cafeteria/internal/app"
	"go.uber.org/zap"
)

const (
	AdminPrefix = "/api/admin"
	StorePrefix = "/api/store"

	appCtxKey = "appctx"
)

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	mws     []echo.MiddlewareFunc
}

var (
	routesMu    sync.Mutex
	adminRoutes []route
	storeRoutes []route
)

func addRoute(dst *[]route, method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	*dst = append(*dst, route{method: method, path: path, handler: h, mws: m})
}

// ApiGET registers an admin route.
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&adminRoutes, http.MethodGet, path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&adminRoutes, http.MethodPost, path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&adminRoutes, http.MethodPut, path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&adminRoutes, http.MethodDelete, path, h, m...)
}

// StoreGET registers a customer route.
func StoreGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&storeRoutes, http.MethodGet, path, h, m...)
}

func StorePOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&storeRoutes, http.MethodPost, path, h, m...)
}

func StorePUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&storeRoutes, http.MethodPut, path, h, m...)
}

func StoreDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(&storeRoutes, http.MethodDelete, path, h, m...)
}

// WebServer serves the admin and store APIs.
type WebServer struct {
	root   *echo.Echo
	appCtx app.AppContext
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.INFO)
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("request",
				zap.String("namespace", "web"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID))
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appCtxKey, appCtx)
			return next(c)
		}
	})

	secret := []byte(cfg.Web.JwtSecret)
	admin := e.Group(AdminPrefix, JWTAuth(secret, true), RequireRole(RoleAdmin))
	store := e.Group(StorePrefix, JWTAuth(secret, false), GuestSession(newSessionStore(cfg.Web.SessionSecret)))

	routesMu.Lock()
	for _, r := range adminRoutes {
		admin.Add(r.method, r.path, r.handler, r.mws...)
	}
	for _, r := range storeRoutes {
		store.Add(r.method, r.path, r.handler, r.mws...)
	}
	routesMu.Unlock()

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return &WebServer{root: e, appCtx: appCtx}
}

// Handler exposes the router, mainly for tests.
func (s *WebServer) Handler() http.Handler {
	return s.root
}

// Start listens until the server is shut down.
func (s *WebServer) Start() error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("Start web server %s", addr)
	err := s.root.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.root.Shutdown(ctx)
}

// GetAppContext returns the application bound to the request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appCtxKey).(app.AppContext)
}
