package cli

import (
	"context"
	"os"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/common"
)

// Login prompts for credentials and authenticates.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}

	printlnFn("Logged in as", user.Name)
	return nil
}

// Register prompts for account details and signs up.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.Register(ctx, api.Registration{
		Name:     name,
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}

	printlnFn("Registered as", user.Name)
	return nil
}

// Logout forgets the session and all dependent caches.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.flow = nil
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the active session.
func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.session.Load(ctx)
	if err != nil {
		if common.HasCode(err, common.CodeNetwork) {
			printlnFn("Server unreachable")
		} else {
			printlnFn("Not logged in")
		}
		return err
	}

	printlnFn("Name:    ", user.Name)
	printlnFn("Email:   ", user.Email)
	printlnFn("Verified:", string(user.Verified))
	if user.DID != nil && *user.DID != "" {
		printlnFn("DID:     ", *user.DID)
	}
	return nil
}
