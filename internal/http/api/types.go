package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/akdrive/akdrive/internal/browser"
	"github.com/akdrive/akdrive/internal/session"
)

const (
	StatusOk           = fiber.StatusOK
	StatusBadRequest   = fiber.StatusBadRequest
	StatusNotFound     = fiber.StatusNotFound
	StatusUnauthorized = fiber.StatusUnauthorized
	StatusCreated      = fiber.StatusCreated
	StatusBadGateway   = fiber.StatusBadGateway
)

const (
	ErrBadRequest   = "bad request body"
	ErrUnauthorized = "authorization failed"
	ErrItemNotFound = "item not found"
)

// Messages shown after successful account operations.
const (
	MsgSignUp        = "If this email is new, a confirmation link has been sent. Please check your inbox."
	MsgResetSent     = "Password reset link sent. Check your email."
	MsgEmailUpdated  = "Verification link sent to new email"
	MsgPasswordReset = "Password updated successfully"
)

// DriveLocation is where the user lands after signing in.
const DriveLocation = "/drive"

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type ForgotRequest struct {
	Email      string `json:"email" form:"email"`
	RedirectTo string `json:"redirectTo" form:"redirectTo"`
}

type ResetRequest struct {
	AccessToken string `json:"accessToken" form:"accessToken" validate:"required"`
	Password    string `json:"password" form:"password"`
}

type EmailRequest struct {
	Email string `json:"email" form:"email"`
}

type PasswordRequest struct {
	Password string `json:"password" form:"password"`
}

type RenameRequest struct {
	Name string `json:"name" form:"name"`
}

type DeleteRequest struct {
	Confirm bool `json:"confirm" form:"confirm"`
}

type FilterRequest struct {
	Text string `json:"text" form:"text"`
}

type ThemeRequest struct {
	Theme string `json:"theme" form:"theme" validate:"required,oneof=light dark"`
}

type SignedIn struct {
	User     session.User `json:"user"`
	Redirect string       `json:"redirect"`
}

type Redirect struct {
	Redirect string `json:"redirect"`
}

type Link struct {
	URL string `json:"url"`
}

type UsageInfo struct {
	Bytes   int64   `json:"bytes"`
	Quota   int64   `json:"quota"`
	Percent float64 `json:"percent"`
}

type Preferences struct {
	Theme string `json:"theme"`
}

// ViewData is what every view endpoint answers with.
type ViewData = browser.Snapshot
