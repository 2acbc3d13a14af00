package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tgdash/internal/config"
	"tgdash/internal/controller"
	"tgdash/internal/poller"
	"tgdash/internal/server/api"
	"tgdash/internal/server/history"
	"tgdash/internal/store"
	"tgdash/internal/store/backend"
)

type Server struct {
	httpServer *http.Server
	store      store.Store
	poller     *poller.Poller
	recorder   *history.Recorder
	log        *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}

	st, err := backend.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// A server address saved from the dashboard wins over the file.
	address := cfg.Controller.Address
	if settings, err := store.LoadSettings(context.Background(), st); err == nil && settings.Server != "" {
		address = settings.Server
	}
	client, err := controller.NewClient(address, cfg.Controller.Timeout, log.Named("controller"))
	if err != nil {
		st.Close()
		return nil, err
	}

	p := poller.New(client, poller.Config{
		Statistics:     cfg.Poll.Statistics,
		TimeStatistics: cfg.Poll.TimeStatistics,
		Tests:          cfg.Poll.Tests,
		TimeLimit:      cfg.Poll.TimeLimit,
	}, log.Named("poller"))
	rec := history.NewRecorder(st, log.Named("history"))

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.AccessLog(log.Named("http")))
	if len(cfg.Server.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.Server.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}

	h := api.NewHandlers(p, client, st, rec, log.Named("api"))
	api.Register(router.Group("/api/v1"), h)

	log.Info("dashboard configured",
		zap.String("controller", client.BaseURL()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("listen", cfg.Server.Listen))

	return &Server{
		store:    st,
		poller:   p,
		recorder: rec,
		log:      log,
		httpServer: &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe starts polling and archiving, then serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.poller.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.recorder.Run(ctx, s.poller)
	}()

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.httpServer.Shutdown(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.store.Close()
}
