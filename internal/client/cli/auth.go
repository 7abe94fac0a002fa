package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/coursepay/internal/client/checkout"
	"github.com/dmitrijs2005/coursepay/internal/client/services"
	"github.com/dmitrijs2005/coursepay/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
)

// Login prompts for email and password and authenticates. The password is
// wiped before returning. A failed login is reported to the user and
// returned.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getSecret("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	cred, err := a.authService.Login(ctx, email, password)
	if err != nil {
		a.logger.Debug(ctx, "login failed", "error", err)
		printlnFn("Login unsuccessful:", checkout.Describe(err))
		return err
	}

	a.userName = displayName(cred)
	printlnFn("Logged in as", a.userName)
	return nil
}

// Logout drops the stored session and any checkout in progress.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.userName = ""
	a.workflow = nil
	printlnFn("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	cred, err := a.authService.Current(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNotLoggedIn) {
			a.userName = ""
		}
		printlnFn("Error:", err)
		return err
	}
	printlnFn("User:", displayName(cred), "id:", cred.UserID, "roles:", cred.Roles)
	return nil
}
