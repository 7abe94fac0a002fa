// Package server runs the payments sandbox: an HTTP API with login,
// refresh-token rotation and course payment endpoints, backed by memory.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/coursepay/internal/logging"
	"github.com/dmitrijs2005/coursepay/internal/server/config"
	"github.com/dmitrijs2005/coursepay/internal/server/httpapi"
	"github.com/dmitrijs2005/coursepay/internal/server/payments"
	"github.com/dmitrijs2005/coursepay/internal/server/users"
)

const shutdownTimeout = 5 * time.Second

// demoUser is seeded at startup so the client has someone to log in as.
type demoUser struct {
	email, name, password string
	roles                 []string
}

var demoUsers = []demoUser{
	{email: "jane@example.com", name: "Jane Doe", password: "password", roles: []string{"student"}},
	{email: "tom@example.com", name: "Tom Tutor", password: "password", roles: []string{"tutor"}},
}

type App struct {
	config          *config.Config
	logger          logging.Logger
	userService     *users.Service
	paymentsService *payments.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	us := users.NewService(users.NewMemoryRepository(), users.NewMemoryRefreshTokenRepository(), c)
	for _, u := range demoUsers {
		if _, err := us.Register(ctx, u.email, u.name, u.password, u.roles...); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	return &App{config: c, logger: logger, userService: us, paymentsService: payments.NewService()}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	api := httpapi.NewServer(app.userService, app.paymentsService, app.logger)
	srv := &http.Server{
		Addr:              app.config.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()
}
