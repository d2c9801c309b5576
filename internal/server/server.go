package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/wlboot/internal/auth"
	"github.com/danmuck/wlboot/internal/discovery"
	"github.com/danmuck/wlboot/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Status serves read-only views of a discovery session over HTTP.
type Status struct {
	Name     string
	Addr     string
	Appeared time.Time

	tracker   *discovery.Tracker
	router    *gin.Engine
	validator auth.Validator
}

func New(name, addr string, tracker *discovery.Tracker, corsOrigins []string) *Status {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.InitLogger(name)))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if tracker == nil {
		tracker = discovery.NewTracker()
	}
	s := &Status{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		tracker:  tracker,
		router:   r,
	}
	s.RegisterRoutes()
	return s
}

// RequireToken guards the session views with a bearer token. An empty
// token leaves them open.
func (s *Status) RequireToken(token string) {
	if token == "" {
		s.validator = nil
		return
	}
	s.validator = auth.StaticToken{Token: token}
}

func (s *Status) guard(c *gin.Context) {
	if s.validator == nil {
		c.Next()
		return
	}
	if err := auth.CheckHeader(s.validator, c.GetHeader("Authorization")); err != nil {
		c.Set(observability.AccessKey, observability.AccessDenied)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(observability.AccessKey, observability.AccessGuarded)
	c.Next()
}

func (s *Status) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on Addr until ctx is cancelled, then shuts down gracefully.
func (s *Status) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Str("addr", s.Addr).Msg("status server stopped")
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
