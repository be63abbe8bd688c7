package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/logger"
)

const (
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg     *Config
	log     *logger.Logger
	stater  entity.BridgeStater
	router  *gin.Engine
	httpSrv *http.Server
}

type Config struct {
	Host string
	Port int
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg *Config, log *logger.Logger, stater entity.BridgeStater) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		log:    log.Layer("rest"),
		stater: stater,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.init()

	return s
}

func (s *Server) init() {
	api := s.router.Group("/api/v1")
	api.GET("/state", s.handlerState)
	api.GET("/links/:id", s.handlerLink)
}

// Start serves the API in the background until ctx is done
func (s *Server) Start(ctx context.Context) {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.Info().
			Str("host", s.cfg.Host).
			Int("port", s.cfg.Port).
			Msg("starting HTTP server")

		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("failed to start HTTP server")
		}
	}()

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(sctx); err != nil {
			s.log.Error().Err(err).Msg("failed to stop HTTP server")
		}
	}()
}

func (s *Server) handlerState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.stater.GetState())
}

func (s *Server) handlerLink(ctx *gin.Context) {
	link, err := s.stater.GetLink(ctx.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, entity.ErrLinkNotExists) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, &errorResponse{Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, link)
}
