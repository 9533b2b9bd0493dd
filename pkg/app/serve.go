package app

import (
	"context"
	"time"

	"SignalForge/pkg/api"
	"SignalForge/pkg/scheduler"
)

const healthInterval = 30 * time.Second

// StartHealthChecks probes connected collaborators until ctx is done
func (a *App) StartHealthChecks(ctx context.Context) {
	for name, check := range a.Checks() {
		a.Monitor.StartChecking(ctx, name, healthInterval, check)
	}
}

// NewScheduler watchlist scheduler over this app's service
func (a *App) NewScheduler() *scheduler.Scheduler {
	return scheduler.NewScheduler(a.Service, a.Config.Scheduler.Spec, a.Config.Scheduler.Watchlist)
}

// RunScheduler blocks running the cron jobs until ctx is done
func (a *App) RunScheduler(ctx context.Context) error {
	s := a.NewScheduler()
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Serve runs the HTTP API until ctx is done, with the scheduler alongside
// when withScheduler is set and scheduling is enabled in the config
func (a *App) Serve(ctx context.Context, withScheduler bool) error {
	a.StartHealthChecks(ctx)

	if withScheduler && a.Config.Scheduler.Enabled {
		s := a.NewScheduler()
		if err := s.Start(); err != nil {
			return err
		}
		defer s.Stop()
	}

	server := api.NewServer(api.Options{
		Port:         a.Config.Server.Port,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	})
	server.SetupRoutes(api.NewHandlers(a.Service, a.Monitor))
	return server.Start(ctx)
}
