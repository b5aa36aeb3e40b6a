package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dispatcher 消息路由
type Dispatcher interface {
	DispatchInbound(ctx context.Context, msg *model.Message, cb runtime.Callback) error
}

// RatingReader 评分查询
type RatingReader interface {
	ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error)
}

type Server struct {
	srv *http.Server
	tl  *zap.Logger
}

// NewServer 同步 HTTP 入口
func NewServer(cfg config.ServerConfig, dispatcher Dispatcher, ratings RatingReader, tl *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, &Handlers{dispatcher: dispatcher, ratings: ratings, tl: tl})

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		tl: tl,
	}
}

// SetupRoutes 注册所有接口
func SetupRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/healthz", h.Health)
	api := router.Group("/v1")
	{
		api.POST("/messages", h.PostMessage)
		api.GET("/ratings/:token", h.ListRatings)
	}
}

func (s *Server) Start() {
	go func() {
		s.tl.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.tl.Error("HTTP server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
