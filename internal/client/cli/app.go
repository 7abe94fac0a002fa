package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
	"github.com/dmitrijs2005/coursepay/internal/client/checkout"
	"github.com/dmitrijs2005/coursepay/internal/client/config"
	"github.com/dmitrijs2005/coursepay/internal/client/payments"
	"github.com/dmitrijs2005/coursepay/internal/client/services"
	"github.com/dmitrijs2005/coursepay/internal/client/session"
	"github.com/dmitrijs2005/coursepay/internal/logging"
)

type App struct {
	config          *config.Config
	authService     services.AuthService
	checkoutService services.CheckoutService
	logger          logging.Logger

	workflow *checkout.Workflow
	userName string

	reader  *bufio.Reader
	out     io.Writer
	closeFn func() error
}

// NewApp opens the session database and builds the API client stack.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	db, err := session.OpenDatabase(ctx, c.SessionDB)
	if err != nil {
		logger.Error(ctx, "error initializing session database", "path", c.SessionDB, "error", err)
		return nil, err
	}

	app := &App{
		config:  c,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closeFn: db.Close,
	}

	apiClient := api.New(c.BaseURL, session.NewSQLiteStore(db),
		api.WithTimeout(c.RequestTimeout),
		api.WithCoordinator(api.NewRefreshCoordinator(c.RefreshWaitLimit)),
		api.WithLogger(logger),
		api.WithAuthLostHandler(app.onAuthLost),
	)

	app.authService = services.NewAuthService(apiClient)
	app.checkoutService = services.NewCheckoutService(app.authService, payments.NewService(apiClient), logger)

	if cred, err := app.authService.Current(ctx); err == nil {
		app.userName = displayName(cred)
	}
	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// onAuthLost runs when a refresh fails and the stored session is dropped.
func (a *App) onAuthLost(ctx context.Context, err error) {
	a.logger.Warn(ctx, "session lost", "error", err)
	a.userName = ""
	printlnFn("Your session has expired. Please log in again.")
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName
	}
	if a.workflow != nil {
		if s != "" {
			s += " "
		}
		s += a.workflow.Snapshot().Stage.String()
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func displayName(cred *session.Credential) string {
	if cred.Email != "" {
		return cred.Email
	}
	if cred.Name != "" {
		return cred.Name
	}
	return cred.UserID
}
