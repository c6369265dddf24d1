package agent

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Login prompts for the user's password without echoing it and opens a
// session against the fleet server.
func (app *App) Login(ctx context.Context, username string) error {
	fmt.Printf("Password for %s: ", username)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	if err := app.client.Login(ctx, username, string(pw)); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.logger.Info(ctx, "logged in", "user", username)
	return nil
}
