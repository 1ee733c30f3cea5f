package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/akdrive/akdrive/internal/metrics"
	"github.com/akdrive/akdrive/internal/session"
	"github.com/akdrive/akdrive/internal/store/boltdb"
	"github.com/akdrive/akdrive/internal/workspace"
	"github.com/akdrive/akdrive/pkg/drive"
	"github.com/akdrive/akdrive/pkg/validator"
)

var validate = validator.New()

// Authenticator is the auth provider as the handlers use it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	SignUp(ctx context.Context, email, password string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateEmail(ctx context.Context, token, email string) error
	UpdatePassword(ctx context.Context, token, password string) error
	SignOut(ctx context.Context, token string) error
	User(ctx context.Context, token string) (*session.User, error)
}

type UsageReader interface {
	Usage(ctx context.Context) (*drive.Usage, error)
}

type PrefStore interface {
	Theme() (boltdb.Theme, error)
	SetTheme(t boltdb.Theme) error
	ToggleTheme() (boltdb.Theme, error)
}

type Deps struct {
	Sessions  *session.Manager
	Auth      Authenticator
	Usage     UsageReader
	Workspace *workspace.Workspace
	Prefs     PrefStore
	Quota     int64
}

func Load(app *fiber.App, deps *Deps) {

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// create api API group
	api := app.Group("/api")

	// public account routes
	api.Post("/auth/login", LoginHandler(deps))
	api.Post("/auth/signup", SignUpHandler(deps))
	api.Post("/auth/forgot", ForgotPasswordHandler(deps))
	api.Post("/auth/reset", ResetPasswordHandler(deps))
	api.Post("/auth/logout", LogoutHandler(deps))

	// preferences outlive the session
	api.Get("/preferences", GetPreferencesHandler(deps))
	api.Put("/preferences/theme", SetThemeHandler(deps))
	api.Post("/preferences/theme/toggle", ToggleThemeHandler(deps))

	// everything below needs a signed-in user
	api.Use(SessionHandler(deps))

	api.Get("/auth/user", UserHandler(deps))
	api.Put("/auth/email", UpdateEmailHandler(deps))
	api.Put("/auth/password", UpdatePasswordHandler(deps))

	api.Get("/usage", UsageHandler(deps))
	api.Get("/search", SearchHandler(deps))

	views := api.Group("/views/:view")
	views.Get("/", GetViewHandler(deps))
	views.Post("/reload", ReloadViewHandler(deps))
	views.Post("/root", RootHandler(deps))
	views.Post("/folders/:id/enter", EnterFolderHandler(deps))
	views.Put("/filter", FilterHandler(deps))

	views.Post("/folders", CreateFolderHandler(deps))
	views.Post("/upload", UploadHandler(deps, false))
	views.Post("/upload-folder", UploadHandler(deps, true))

	views.Post("/items/:id/star", StarHandler(deps))
	views.Post("/items/:id/trash", TrashHandler(deps))
	views.Post("/items/:id/restore", RestoreHandler(deps))
	views.Patch("/items/:id", RenameHandler(deps))
	views.Delete("/items/:id", DeleteHandler(deps))
	views.Get("/items/:id/download", DownloadHandler(deps))
}
