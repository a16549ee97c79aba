package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/neurobridge-editor/internal/app"
	"github.com/yungbote/neurobridge-editor/internal/platform/envutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Params{
		CourseID:    envutil.String("NB_COURSE_ID", ""),
		EditMode:    envutil.Bool("NB_EDIT_MODE", false),
		AccessToken: envutil.String("NB_ACCESS_TOKEN", ""),
	})
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Log.Info("Editor listening", "addr", a.Cfg.HTTP.Addr)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error("Editor stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
