package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/session"
)

func LoginHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		creds := new(Credentials)
		if err := c.BodyParser(creds); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}

		s, err := deps.Auth.SignIn(c.UserContext(), creds.Email, creds.Password)
		if err != nil {
			return fiberError("", err)
		}
		// a new session never sees the views of the previous one
		deps.Workspace.Reset()
		if err = deps.Sessions.Begin(s); err != nil {
			return err
		}

		return c.Status(StatusOk).
			JSON(Response{Message: "login successful", Data: SignedIn{User: s.User, Redirect: DriveLocation}})
	}
}

func SignUpHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		creds := new(Credentials)
		if err := c.BodyParser(creds); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := deps.Auth.SignUp(c.UserContext(), creds.Email, creds.Password); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).JSON(Response{Message: MsgSignUp})
	}
}

func ForgotPasswordHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(ForgotRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := deps.Auth.ResetPasswordForEmail(c.UserContext(), req.Email, req.RedirectTo); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).JSON(Response{Message: MsgResetSent})
	}
}

// ResetPasswordHandler sets a new password with the recovery token from the
// reset link, then sends the user back to the landing page.
func ResetPasswordHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(ResetRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(StatusBadRequest, err.Error())
		}
		if err := deps.Auth.UpdatePassword(c.UserContext(), req.AccessToken, req.Password); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).
			JSON(Response{Message: MsgPasswordReset, Data: Redirect{session.LandingLocation}})
	}
}

func LogoutHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s, ok := deps.Sessions.Current(); ok {
			if err := deps.Auth.SignOut(c.UserContext(), s.AccessToken); err != nil {
				log.Warn().Str("c", "api").Err(err).Msg("provider sign-out failed")
			}
			deps.Sessions.SignOut()
		}
		return c.Status(StatusOk).
			JSON(Response{Message: "logout successful", Data: Redirect{session.LandingLocation}})
	}
}

// SessionHandler rejects requests made without a signed-in user.
func SessionHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := deps.Sessions.Current()
		if !ok {
			return fiber.NewError(StatusUnauthorized, ErrUnauthorized)
		}
		c.Locals("session", s)
		return c.Next()
	}
}

func current(c *fiber.Ctx) session.Session {
	s, _ := c.Locals("session").(session.Session)
	return s
}

func UserHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := deps.Auth.User(c.UserContext(), current(c).AccessToken)
		if err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).JSON(Response{Message: "user retrieved", Data: user})
	}
}

func UpdateEmailHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(EmailRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := deps.Auth.UpdateEmail(c.UserContext(), current(c).AccessToken, req.Email); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).JSON(Response{Message: MsgEmailUpdated})
	}
}

func UpdatePasswordHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(PasswordRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		if err := deps.Auth.UpdatePassword(c.UserContext(), current(c).AccessToken, req.Password); err != nil {
			return fiberError("", err)
		}
		return c.Status(StatusOk).JSON(Response{Message: MsgPasswordReset})
	}
}
