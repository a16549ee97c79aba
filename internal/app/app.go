package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-editor/internal/auth"
	"github.com/yungbote/neurobridge-editor/internal/config"
	"github.com/yungbote/neurobridge-editor/internal/editor"
	httpserver "github.com/yungbote/neurobridge-editor/internal/http"
	"github.com/yungbote/neurobridge-editor/internal/observability"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/sse"
)

// Params select the course session this process serves.
type Params struct {
	CourseID    string
	EditMode    bool
	AccessToken string
}

type App struct {
	Log     *logger.Logger
	Cfg     *config.Config
	Auth    *auth.Session
	Editor  *editor.Session
	SSEHub  *sse.Hub
	Server  *httpserver.Server
	Redis   goredis.UniversalClient
	unwatch func()

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, p Params) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	courseID := strings.TrimSpace(p.CourseID)
	if courseID == "" {
		log.Sync()
		return nil, fmt.Errorf("course id required")
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Env,
	})

	session := auth.NewSession()
	if err := session.Init(p.AccessToken); err != nil {
		log.Sync()
		return nil, fmt.Errorf("init session: %w", err)
	}

	hub := sse.NewHub(log)

	clientset, err := wireClients(ctx, log, cfg, session, courseID, p.EditMode)
	if err != nil {
		log.Sync()
		return nil, err
	}

	ed, unwatch, err := wireEditor(log, cfg, clientset, hub, courseID, p.EditMode)
	if err != nil {
		clientset.Close()
		log.Sync()
		return nil, err
	}

	server := httpserver.NewServer(cfg.HTTP.Addr, wireRouter(log, cfg, ed, hub))

	log.Info("Editor wired",
		"course_id", courseID,
		"mode", string(ed.Mode()),
		"user_id", session.UserID(),
		"transport", cfg.Stream.Transport,
		"http_addr", cfg.HTTP.Addr,
	)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Auth:         session,
		Editor:       ed,
		SSEHub:       hub,
		Server:       server,
		Redis:        clientset.Redis,
		unwatch:      unwatch,
		otelShutdown: otelShutdown,
	}, nil
}

// Run opens the session and serves the local API until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil || a.Editor == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.HTTP.ShutdownTimeout.Duration)
	})

	g.Go(func() error {
		// A failed load leaves the editor serving an empty course with the error.
		if err := a.Editor.Open(gctx); err != nil {
			a.Log.Warn("Editor open failed", "error", err)
		}
		<-gctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Editor.Close(closeCtx)
		return nil
	})

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.unwatch != nil {
		a.unwatch()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Auth != nil {
		a.Auth.Clear()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout.Duration)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
