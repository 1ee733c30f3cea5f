package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/akdrive/akdrive/internal/auth"
	"github.com/akdrive/akdrive/internal/browser"
	"github.com/akdrive/akdrive/internal/dispatcher"
	"github.com/akdrive/akdrive/internal/store/boltdb"
	"github.com/akdrive/akdrive/pkg/drive"
)

// fiberError maps errors of the lower layers to HTTP answers. action names
// the user action for generic notices; it may be empty.
func fiberError(action string, err error) error {
	if err == nil {
		return nil
	}
	var (
		apiErr   *drive.APIError
		authErr  *auth.ProviderError
		validErr *auth.ValidationError
	)
	switch {
	case errors.Is(err, drive.ErrUnauthorized):
		return fiber.NewError(StatusUnauthorized, ErrUnauthorized)
	case errors.As(err, &validErr):
		return fiber.NewError(StatusBadRequest, validErr.Message)
	case errors.As(err, &authErr):
		return fiber.NewError(passStatus(authErr.Status), authErr.Message)
	case errors.As(err, &apiErr):
		return fiber.NewError(passStatus(apiErr.Status), apiErr.Message)
	case errors.Is(err, browser.ErrUnknownView):
		return fiber.NewError(StatusNotFound, err.Error())
	case errors.Is(err, browser.ErrNotNavigable),
		errors.Is(err, browser.ErrNotFolder),
		errors.Is(err, browser.ErrFilterUnsupported),
		errors.Is(err, browser.ErrNotSearch),
		errors.Is(err, dispatcher.ErrEmptyName),
		errors.Is(err, dispatcher.ErrNoFiles),
		errors.Is(err, dispatcher.ErrAlreadyTrashed),
		errors.Is(err, dispatcher.ErrNotTrashed),
		errors.Is(err, dispatcher.ErrNotConfirmed),
		errors.Is(err, boltdb.ErrInvalidTheme):
		return fiber.NewError(StatusBadRequest, err.Error())
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	if action != "" {
		return fiber.NewError(StatusBadGateway, dispatcher.Notice(action, err))
	}
	return err
}

// passStatus keeps client errors and turns everything else into 502, since
// the failure happened upstream.
func passStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return StatusBadGateway
}
