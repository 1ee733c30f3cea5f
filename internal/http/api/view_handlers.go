package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/akdrive/akdrive/internal/browser"
	"github.com/akdrive/akdrive/internal/workspace"
	"github.com/akdrive/akdrive/pkg/drive"
)

// view resolves the :view parameter to a mounted view.
func view(c *fiber.Ctx, deps *Deps) (*workspace.View, error) {
	v, err := browser.ParseView(c.Params("view"))
	if err != nil {
		return nil, fiberError("", err)
	}
	wv, err := deps.Workspace.View(c.UserContext(), v)
	if err != nil {
		return nil, fiberError("", err)
	}
	return wv, nil
}

// listed answers with the view's snapshot. A failed listing is part of the
// snapshot; misuse of the view and a lost session are errors.
func listed(c *fiber.Ctx, wv *workspace.View, msg string, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, drive.ErrUnauthorized),
		errors.Is(err, browser.ErrNotNavigable),
		errors.Is(err, browser.ErrNotFolder),
		errors.Is(err, browser.ErrFilterUnsupported),
		errors.Is(err, browser.ErrNotSearch):
		return fiberError("", err)
	}
	return c.Status(StatusOk).JSON(Response{Message: msg, Data: wv.Browser.Snapshot()})
}

func GetViewHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		return listed(c, wv, "view retrieved", nil)
	}
}

func ReloadViewHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		return listed(c, wv, "view reloaded", wv.Browser.Reload(c.UserContext()))
	}
}

func EnterFolderHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		return listed(c, wv, "folder opened", wv.Browser.EnterFolder(c.UserContext(), c.Params("id")))
	}
}

func RootHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		return listed(c, wv, "root opened", wv.Browser.ExitToRoot(c.UserContext()))
	}
}

// FilterHandler narrows the starred view locally; no request is sent.
func FilterHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(FilterRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		_, err = wv.Browser.SetFilter(req.Text)
		return listed(c, wv, "view filtered", err)
	}
}

func SearchHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := deps.Workspace.View(c.UserContext(), browser.ViewSearch)
		if err != nil {
			return fiberError("", err)
		}
		return listed(c, wv, "search results", wv.Browser.SetQuery(c.UserContext(), c.Query("q")))
	}
}

func UsageHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usage, err := deps.Usage.Usage(c.UserContext())
		if err != nil {
			return fiberError("usage", err)
		}
		quota := deps.Quota
		if quota <= 0 {
			quota = drive.DefaultQuota
		}
		return c.Status(StatusOk).JSON(Response{
			Message: "usage retrieved",
			Data:    UsageInfo{Bytes: usage.Bytes, Quota: quota, Percent: usage.Percent(quota)},
		})
	}
}
