package http

import (
	"errors"

	fzl "github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/http/api"
	"github.com/akdrive/akdrive/internal/session"
)

type Config struct {
	Addr         string `mapstructure:"addr"`
	HTTPSAddr    string `mapstructure:"https_addr"`
	HTTPSKeyPath string `mapstructure:"https_keypath"`
	HTTPSCrtPath string `mapstructure:"https_crtpath"`
	BodyLimit    int    `mapstructure:"body_limit"`
}

// New builds the fiber app serving the api routes.
func New(cfg *Config, deps *api.Deps) *fiber.App {

	fconfig := fiber.Config{
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError // Status code defaults to 500
			if ctx.BaseURL() == "http://" || ctx.BaseURL() == "https://" {
				return nil
			}
			// Retrieve the custom status code if it's a *fiber.Error
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			switch code {
			case fiber.StatusUnauthorized:
				// the client goes back to the landing page
				return ctx.Status(code).
					JSON(api.Response{Message: err.Error(), Data: api.Redirect{Redirect: session.LandingLocation}})
			case fiber.StatusInternalServerError:
				log.Error().Str("c", "httpserver").Err(err).Str("path", ctx.Path()).Msg("request failed")
				return ctx.Status(code).JSON(api.Response{Message: "internal server error"})
			}
			return ctx.Status(code).JSON(api.Response{Message: err.Error()})
		},
	}

	// Initialize fiber app
	app := fiber.New(fconfig)

	// Enable logger
	logger := log.With().Str("c", "httpserver").Logger()
	app.Use(fzl.New(fzl.Config{Logger: &logger}))

	// Enable cors
	app.Use(cors.New())

	// Register API routes
	api.Load(app, deps)

	return app
}

func Serv(cfg *Config, deps *api.Deps) error {
	app := New(cfg, deps)

	// Error channel to capture any listen errors
	errChan := make(chan error)

	// Listen on HTTP
	go func() {
		if cfg.Addr != "" {
			log.Info().Str("c", "http").Str("addr", cfg.Addr).Msg("starting http server")
			errChan <- app.Listen(cfg.Addr)
		}
	}()

	// Listen on HTTPS
	go func() {
		if cfg.HTTPSAddr != "" && cfg.HTTPSCrtPath != "" && cfg.HTTPSKeyPath != "" {
			log.Info().Str("c", "http").Str("addr", cfg.HTTPSAddr).Msg("starting https server")
			errChan <- app.ListenTLS(cfg.HTTPSAddr, cfg.HTTPSCrtPath, cfg.HTTPSKeyPath)
		}
	}()

	// Return the first error received
	return <-errChan
}
