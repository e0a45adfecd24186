package ui

import (
	"errors"
	"fmt"

	"github.com/enderiumcraft/rbclauncher/src/internal/app"
	"github.com/enderiumcraft/rbclauncher/src/internal/prefs"
	"github.com/enderiumcraft/rbclauncher/src/internal/users"
)

// userMessage is the dialog text for err. Known account and launch errors
// get a sentence for the user; anything else shows the diagnostic as is.
func userMessage(err error) string {
	var required *app.UpdateRequiredError
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, users.ErrDuplicateUsername):
		return "Username already exists"
	case errors.Is(err, users.ErrMissingFields):
		return "Please enter both username and password"
	case errors.Is(err, users.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters", users.MinPasswordLength)
	case errors.Is(err, app.ErrNotLoggedIn):
		return "Please log in first"
	case errors.Is(err, prefs.ErrRAMOutOfRange):
		return fmt.Sprintf("RAM allocation must be between %d and %d MB", prefs.MinRAM, prefs.MaxRAM)
	case errors.As(err, &required):
		return fmt.Sprintf("Update %s must be installed before launching", required.Check.Manifest.Tag)
	}
	return err.Error()
}
