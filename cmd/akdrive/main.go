package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	zl "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/akdrive/akdrive/internal/auth"
	"github.com/akdrive/akdrive/internal/filesystem"
	"github.com/akdrive/akdrive/internal/ftp"
	"github.com/akdrive/akdrive/internal/http"
	"github.com/akdrive/akdrive/internal/http/api"
	"github.com/akdrive/akdrive/internal/metrics"
	"github.com/akdrive/akdrive/internal/session"
	"github.com/akdrive/akdrive/internal/store/boltdb"
	"github.com/akdrive/akdrive/internal/workspace"
	"github.com/akdrive/akdrive/pkg/drive"
)

var version = "dev"

// Config represents the entire configuration as defined in the YAML file.
type Config struct {
	Drive drive.Config `mapstructure:"drive"`

	// Quota is the storage quota in bytes usage is shown against
	Quota int64 `mapstructure:"quota"`

	Auth auth.Config `mapstructure:"auth"`

	Bolt boltdb.Config `mapstructure:"boltdb"`

	Frontend struct {
		FTP  ftp.Config  `mapstructure:"ftp"`
		HTTP http.Config `mapstructure:"http"`
	} `mapstructure:"frontend"`
}

var config Config

var (
	showVersion = flag.Bool("version", false, "print version information and exit")
	debugMode   = flag.Bool("debug", false, "enable debug logs")
	configFile  = flag.String("config", "", "path to akdrive configuration file")
)

func main() {
	flag.Parse()

	// Check if a version flag is set
	if *showVersion {
		fmt.Printf("akdrive: %s\n", version)
		os.Exit(0)
	}

	// Set the maximum number of operating system threads to use.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Setup logger
	log.Logger = zl.New(zl.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	zl.SetGlobalLevel(zl.InfoLevel)
	if *debugMode {
		zl.SetGlobalLevel(zl.DebugLevel)
	}

	// Load config file
	initConfig()

	// Local state: session and preferences
	store, err := boltdb.New(&config.Bolt)
	if err != nil {
		log.Fatal().Err(err).Str("c", "main").Msg("failed to open local store")
	}
	defer store.Close()

	sessions, err := session.NewManager(store)
	if err != nil {
		log.Fatal().Err(err).Str("c", "main").Msg("failed to restore session")
	}

	client := drive.New(&config.Drive, sessions)
	client.SetObserver(metrics.Backend{})
	authClient := auth.New(&config.Auth)

	ws := workspace.New(client)
	// views of an ended session are never shown again
	sessions.OnSignOut(func(reason session.Reason, location string) {
		ws.Reset()
		log.Info().Str("c", "main").Str("reason", string(reason)).Str("location", location).Msg("session ended")
	})

	deps := &api.Deps{
		Sessions:  sessions,
		Auth:      authClient,
		Usage:     client,
		Workspace: ws,
		Prefs:     store,
		Quota:     config.Quota,
	}
	fs := filesystem.New(client, filesystem.WithTimeout(config.Drive.Timeout))

	var servers []func() error
	// Create ftp server when it has an address
	if config.Frontend.FTP.Addr != "" {
		servers = append(servers, func() error {
			return ftp.Serv(&config.Frontend.FTP, fs, authClient, signIn{sessions, ws})
		})
	}
	// Create http server
	servers = append(servers, func() error { return http.Serv(&config.Frontend.HTTP, deps) })

	if err = serve(servers...); err != nil {
		log.Fatal().Str("c", "main").Err(err).Msgf("akdrive crashed")
	}
}

// serve runs every server and returns the first error. A server that stops
// without an error does not stop the others.
func serve(servers ...func() error) error {
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv func() error) { errCh <- srv() }(srv)
	}
	for range servers {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// signIn starts a session from the FTP front end the same way the login
// endpoint does.
type signIn struct {
	sessions *session.Manager
	ws       *workspace.Workspace
}

func (s signIn) Begin(sess *session.Session) error {
	s.ws.Reset()
	return s.sessions.Begin(sess)
}

func initConfig() {
	// .env values become plain environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("c", "config").Err(err).Msg("failed to load .env")
	}

	// Setup config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/akdrive/")
	if *configFile != "" {
		viper.SetConfigFile(*configFile)
	}

	viper.SetDefault("drive.base_url", drive.DefaultBaseURL)
	viper.SetDefault("drive.timeout", drive.DefaultTimeout)
	viper.SetDefault("quota", drive.DefaultQuota)
	viper.SetDefault("auth.timeout", auth.DefaultTimeout)
	viper.SetDefault("boltdb.db_path", "akdrive.db")
	viper.SetDefault("frontend.http.addr", ":2526")
	viper.SetDefault("frontend.http.body_limit", 1<<30)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// without a file, defaults and environment carry the config
		if !errors.As(err, &notFound) || *configFile != "" {
			log.Fatal().Str("c", "config").Err(err).Msg("failed to read config")
		}
	}

	// Bind env
	_ = viper.BindEnv("drive.base_url", "API_BASE_URL")
	_ = viper.BindEnv("drive.timeout", "API_TIMEOUT")
	_ = viper.BindEnv("quota", "DRIVE_QUOTA")

	_ = viper.BindEnv("auth.url", "AUTH_URL")
	_ = viper.BindEnv("auth.anon_key", "AUTH_ANON_KEY")
	_ = viper.BindEnv("auth.reset_redirect", "AUTH_RESET_REDIRECT")
	_ = viper.BindEnv("auth.timeout", "AUTH_TIMEOUT")

	_ = viper.BindEnv("boltdb.db_path", "BOLTDB_DB_PATH")

	_ = viper.BindEnv("frontend.ftp.addr", "FTP_ADDR")
	_ = viper.BindEnv("frontend.ftp.port_range", "FTP_PORT_RANGE")
	_ = viper.BindEnv("frontend.ftp.public_host", "FTP_PUBLIC_HOST")
	_ = viper.BindEnv("frontend.http.addr", "HTTP_ADDR")
	_ = viper.BindEnv("frontend.http.body_limit", "HTTP_BODY_LIMIT")
	_ = viper.BindEnv("frontend.http.https_addr", "HTTPS_ADDR")
	_ = viper.BindEnv("frontend.http.https_crtpath", "HTTPS_CRTPATH")
	_ = viper.BindEnv("frontend.http.https_keypath", "HTTPS_KEYPATH")

	err := viper.Unmarshal(&config)
	if err != nil {
		log.Fatal().Str("c", "config").Err(err).Msg("failed to decode config into struct")
	}
	if config.Auth.URL == "" {
		log.Fatal().Str("c", "config").Msg("auth.url (AUTH_URL) is required")
	}
}
