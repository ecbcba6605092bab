package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
	"github.com/dmitrijs2005/equiplookup/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and signs in through the reconciler. The
// password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	if id, ok := a.session.Current(); ok {
		fmt.Fprintf(a.out, "Already signed in as %s, logout first\n", id.Email)
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.session.SignIn(ctx, email, string(password))
	if err != nil {
		a.logger.Info(ctx, "sign-in failed", "email", email, "error", err)
		return err
	}
	a.logger.Debug(ctx, "signed in", "user_id", id.ID)
	return nil
}

// Logout always leaves the client signed out, even when the server could
// not be reached.
func (a *App) Logout(ctx context.Context) error {
	a.session.SignOut(ctx)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, ok := a.session.Current()
	if !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\nid:   %s\n", id.Username, id.Email, id.Role, id.ID)
	return nil
}

// AddUser prompts for a new account and creates it. Role defaults to user.
func (a *App) AddUser(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email of the new user", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Display name (optional)", a.out)
	if err != nil {
		return err
	}
	role, err := getSimpleText(a.reader, "Role [user|admin] (default user)", a.out)
	if err != nil {
		return err
	}
	if role == "" {
		role = "user"
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.users.CreateUser(ctx, provider.NewUser{
		Email:    email,
		Password: string(password),
		Username: username,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return fmt.Errorf("user %s already exists", email)
		}
		return err
	}
	fmt.Fprintf(a.out, "Created user %s (%s)\n", u.Email, u.ID)
	return nil
}
