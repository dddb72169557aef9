package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/observability/otelx"
	"github.com/bakkerme/polaris/internal/relay"
	"github.com/bakkerme/polaris/internal/sentiment"
)

const healthMessage = "Backend is live ✅"

// Completer answers one chat submission.
type Completer interface {
	Complete(ctx context.Context, sub relay.Submission) (string, error)
}

// Responder answers one free-form query for the agent chat route.
type Responder interface {
	Respond(ctx context.Context, query string) (string, error)
}

// SentimentAnalyzer backs the comment routes.
type SentimentAnalyzer interface {
	Comments() []string
	Analyze(ctx context.Context, comments []string) []sentiment.Result
}

type Server struct {
	config    config.ServerEnvConfig
	relay     Completer
	agent     Responder
	sentiment SentimentAnalyzer
	logger    *slog.Logger
	echo      *echo.Echo
}

// Option registers optional routes.
type Option func(*Server)

// WithAgent serves POST /api/chat.
func WithAgent(agent Responder) Option {
	return func(s *Server) { s.agent = agent }
}

// WithSentiment serves GET /comments and POST /analyze.
func WithSentiment(analyzer SentimentAnalyzer) Option {
	return func(s *Server) { s.sentiment = analyzer }
}

func NewServer(cfg config.ServerEnvConfig, completer Completer, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler(logger)

	server := &Server{
		config: cfg,
		relay:  completer,
		logger: logger,
		echo:   e,
	}
	for _, opt := range opts {
		opt(server)
	}
	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			ctx := core.WithRequestID(req.Context(), id)
			ctx = core.WithLogger(ctx, s.logger.With("request_id", id))
			c.SetRequest(req.WithContext(ctx))
		},
	}))
	s.echo.Use(tracing())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.logger.Info("http request", attrs...)
			return nil
		},
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc:  s.allowOrigin,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.handleHealth)

	api := s.echo.Group("/api/llm")
	api.POST("/chat", s.handleChat)

	if s.agent != nil {
		s.echo.POST("/api/chat", s.handleAgentChat)
	}
	if s.sentiment != nil {
		s.echo.GET("/comments", s.handleComments)
		s.echo.POST("/analyze", s.handleAnalyze)
	}
}

// allowOrigin admits only the configured origins. Requests without an Origin
// header never reach it.
func (s *Server) allowOrigin(origin string) (bool, error) {
	if slices.Contains(s.config.AllowedOrigins, origin) {
		return true, nil
	}
	s.logger.Warn("blocked by CORS", "origin", origin)
	return false, echo.NewHTTPError(http.StatusForbidden, "Not allowed by CORS")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("relay listening", "addr", addr, "allowed_origins", s.config.AllowedOrigins)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, healthMessage)
}

type errorResponse struct {
	Error string `json:"error"`
}

// jsonErrorHandler renders every error as {"error": message}.
func jsonErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("unhandled error", "error", err)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorResponse{Error: message})
		}
		if err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}

func tracing() echo.MiddlewareFunc {
	tracer := otelx.Tracer("api")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, req.Method+" "+c.Path())
			defer span.End()
			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.String("request.id", core.RequestIDFromContext(ctx)),
			)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))
			return err
		}
	}
}
