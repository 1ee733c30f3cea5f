package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/akdrive/akdrive/internal/store/boltdb"
)

func GetPreferencesHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		theme, err := deps.Prefs.Theme()
		if err != nil {
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "preferences retrieved", Data: Preferences{Theme: string(theme)}})
	}
}

func SetThemeHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(ThemeRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		if err := deps.Prefs.SetTheme(boltdb.Theme(req.Theme)); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "theme updated", Data: Preferences{Theme: req.Theme}})
	}
}

func ToggleThemeHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		theme, err := deps.Prefs.ToggleTheme()
		if err != nil {
			return err
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "theme updated", Data: Preferences{Theme: string(theme)}})
	}
}
