package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/screen"
)

// Server exposes the screens over HTTP and a WebSocket stream.
type Server struct {
	Navigator *screen.Navigator
	Oracle    *oracle.Oracle
	Catalog   *metals.Catalog
	Hub       *Hub

	engine *gin.Engine
	srv    *http.Server
	unsub  func()
	log    *logrus.Entry
}

// NewServer builds the router and subscribes the hub to navigator updates.
func NewServer(addr string, nav *screen.Navigator, o *oracle.Oracle, cat *metals.Catalog) *Server {
	s := &Server{
		Navigator: nav,
		Oracle:    o,
		Catalog:   cat,
		Hub:       NewHub(),
		log:       logger.For("api"),
	}
	s.unsub = nav.OnChange(s.Hub.Publish)

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(r)
	s.engine = r
	s.srv = &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", s.stream)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/metals", s.listMetals)
		v1.GET("/quotes", s.quotes)
		v1.GET("/list", s.listState)
		v1.POST("/list/select/:code", s.selectMetal)
		v1.GET("/detail", s.detailState)
		v1.POST("/detail/refresh", s.refreshDetail)
		v1.POST("/detail/back", s.back)
	}
}

// Run starts the hub and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.unsub()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}

func errorBody(msg string, err error) gin.H {
	body := gin.H{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	return body
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "screen": s.Navigator.Current()})
}

func (s *Server) listMetals(c *gin.Context) {
	c.JSON(http.StatusOK, s.Catalog.All())
}

func (s *Server) quotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"source": s.Oracle.Source.Name(),
		"quotes": s.Oracle.FetchAll(c.Request.Context()),
	})
}

func (s *Server) listState(c *gin.Context) {
	c.JSON(http.StatusOK, s.Navigator.List().State())
}

func (s *Server) selectMetal(c *gin.Context) {
	metal, ok := s.Catalog.Find(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("unknown metal", oracle.ErrUnknownMetal))
		return
	}
	d, err := s.Navigator.Select(metal.Code)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("cannot open detail screen", err))
		return
	}
	c.JSON(http.StatusOK, model.Selection{Metal: d.Metal(), Data: d.Snapshot()})
}

func (s *Server) detailState(c *gin.Context) {
	d := s.Navigator.Detail()
	if d == nil {
		c.JSON(http.StatusNotFound, errorBody("no metal selected", nil))
		return
	}
	c.JSON(http.StatusOK, d.State())
}

func (s *Server) refreshDetail(c *gin.Context) {
	d := s.Navigator.Detail()
	if d == nil {
		c.JSON(http.StatusNotFound, errorBody("no metal selected", nil))
		return
	}

	err := d.Refresh(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, d.State())
	case errors.Is(err, screen.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, errorBody("refresh already in progress", err))
	case errors.Is(err, screen.ErrNotMounted):
		c.JSON(http.StatusNotFound, errorBody("detail screen closed", err))
	default:
		body := errorBody("Failed to refresh data", err)
		body["state"] = d.State()
		c.JSON(http.StatusBadGateway, body)
	}
}

func (s *Server) back(c *gin.Context) {
	popped := s.Navigator.Back()
	c.JSON(http.StatusOK, gin.H{"popped": popped, "state": s.Navigator.List().State()})
}

func (s *Server) stream(c *gin.Context) {
	initial := []model.ScreenState{s.Navigator.List().State()}
	if d := s.Navigator.Detail(); d != nil {
		initial = append(initial, d.State())
	}
	s.Hub.serve(c.Writer, c.Request, initial)
}
