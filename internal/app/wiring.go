package app

import (
	"github.com/yungbote/neurobridge-editor/internal/config"
	"github.com/yungbote/neurobridge-editor/internal/coursetree"
	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/editor"
	httpserver "github.com/yungbote/neurobridge-editor/internal/http"
	httpH "github.com/yungbote/neurobridge-editor/internal/http/handlers"
	"github.com/yungbote/neurobridge-editor/internal/notify"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/sse"
)

func wireEditor(log *logger.Logger, cfg *config.Config, clients Clients, hub *sse.Hub, courseID string, editMode bool) (*editor.Session, func(), error) {
	mode := editor.ModeGeneration
	if editMode {
		mode = editor.ModeEdit
	}
	opts := editor.Options{
		CourseID:        courseID,
		Mode:            mode,
		Repo:            clients.CourseAPI,
		Flags:           clients.Flags,
		Notify:          notify.Multi(&notify.LogSink{Log: log.With("component", "Notifications")}, &notify.HubSink{Hub: hub}),
		Log:             log,
		ExpectedClasses: cfg.Progress.ExpectedClasses,
		OnProgress: func(p course.GenerationProgress) {
			hub.Broadcast(sse.Message{Channel: courseID, Event: sse.EventProgress, Data: p})
		},
		OnEditState: func(st editor.EditStatus) {
			hub.Broadcast(sse.Message{Channel: courseID, Event: sse.EventEditState, Data: st})
		},
	}
	// A nil *realtime.Channel must stay a nil interface.
	if clients.Channel != nil {
		opts.Channel = clients.Channel
	}
	ed, err := editor.New(opts)
	if err != nil {
		return nil, nil, err
	}
	unwatch := ed.Tree().Subscribe(func(ch coursetree.Change) {
		hub.Broadcast(sse.Message{Channel: courseID, Event: sse.EventCourseChanged, Data: ch})
	})
	return ed, unwatch, nil
}

func wireRouter(log *logger.Logger, cfg *config.Config, ed *editor.Session, hub *sse.Hub) httpserver.RouterConfig {
	return httpserver.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		CourseHandler:   httpH.NewCourseHandler(log, ed),
		EditHandler:     httpH.NewEditHandler(log, ed),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub, ed.CourseID()),
		HealthHandler:   httpH.NewHealthHandler(),
	}
}
