// Package ftp serves the drive over FTP. FTP users sign in with their drive
// email and password.
package ftp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fclairamb/ftpserverlib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/akdrive/akdrive/internal/session"
)

const IPResolveURL = "https://ipinfo.io/ip"

// Define custom error messages
var (
	ErrNoTLS                 = errors.New("TLS is not configured")    // Error for missing TLS configuration
	ErrBadUserNameOrPassword = errors.New("bad username or password") // Error for failed authentication
	ErrBadPortRange          = errors.New("bad port range")
)

type Config struct {
	Addr       string `mapstructure:"addr"`
	PortRange  string `mapstructure:"port_range"`
	PublicHost string `mapstructure:"public_host"`
}

// Authenticator checks FTP credentials against the auth provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
}

// Sessions installs the session of a signed-in FTP user.
type Sessions interface {
	Begin(s *session.Session) error
}

func Serv(cfg *Config, fs afero.Fs, auth Authenticator, sessions Sessions) error {
	// If Addr not provided, do not start FTP server
	if cfg.Addr == "" {
		return nil
	}
	driver, err := NewDriver(cfg, fs, auth, sessions)
	if err != nil {
		return err
	}

	// Instantiate the FTP server with the driver and return a pointer to it
	server := ftpserver.NewFtpServer(driver)
	log.Info().Str("c", "ftp").Str("addr", cfg.Addr).Msg("starting ftp server")

	return server.ListenAndServe()
}

func NewDriver(cfg *Config, fs afero.Fs, auth Authenticator, sessions Sessions) (*Driver, error) {
	driver := &Driver{
		Fs:       fs,
		auth:     auth,
		sessions: sessions,
		Settings: &ftpserver.Settings{
			ListenAddr:          cfg.Addr,                     // The network address to listen on
			DefaultTransferType: ftpserver.TransferTypeBinary, // Default to binary transfer mode
			// Transfers count as idle time; allow big files to finish
			IdleTimeout: 86400, // 24 hour
		},
	}

	// Enable PASV mode if portRange is supplied
	if cfg.PortRange != "" {
		portRange, err := parsePortRange(cfg.PortRange)
		if err != nil {
			return nil, err
		}
		driver.Settings.PassiveTransferPortRange = portRange
		if cfg.PublicHost != "" {
			driver.Settings.PublicHost = cfg.PublicHost
		} else {
			driver.Settings.PublicIPResolver = resolvePublicIP
		}
	}
	return driver, nil
}

// parsePortRange parses "start-end".
func parsePortRange(s string) (*ftpserver.PortRange, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadPortRange, s)
	}
	r := &ftpserver.PortRange{}
	if _, err := fmt.Sscanf(start+" "+end, "%d %d", &r.Start, &r.End); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadPortRange, s)
	}
	if r.Start < 1 || r.End > 65535 || r.Start > r.End {
		return nil, fmt.Errorf("%w: %q", ErrBadPortRange, s)
	}
	return r, nil
}

// resolvePublicIP fetches the server's public address for PASV replies.
func resolvePublicIP(ftpserver.ClientContext) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(IPResolveURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	ip, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(ip)), nil
}

// Driver is the FTP server driver implementation.
type Driver struct {
	Fs       afero.Fs            // The file system to serve over FTP
	Settings *ftpserver.Settings // The FTP server settings
	auth     Authenticator
	sessions Sessions
}

// ClientConnected is called when a client is connected to the FTP server.
func (d *Driver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).
		Str("client", cc.GetClientVersion()).Uint32("id", cc.ID()).Msg("client connected")
	return "akdrive FTP Server", nil // Return a welcome message
}

// ClientDisconnected is called when a client is disconnected from the FTP server.
func (d *Driver) ClientDisconnected(cc ftpserver.ClientContext) {
	log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).
		Str("client", cc.GetClientVersion()).Uint32("id", cc.ID()).Msg("client disconnected")
}

// AuthUser signs the user in with the auth provider and installs the session
// the filesystem then works with.
func (d *Driver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := d.auth.SignIn(ctx, user, pass)
	if err != nil {
		log.Info().Str("c", "ftpserver").Str("addr", cc.RemoteAddr().String()).Uint32("id", cc.ID()).
			Str("user", user).Err(err).Msg("authentication failed")
		return nil, ErrBadUserNameOrPassword
	}
	if err = d.sessions.Begin(s); err != nil {
		return nil, err
	}
	return d.Fs, nil
}

// GetSettings returns the FTP server settings.
func (d *Driver) GetSettings() (*ftpserver.Settings, error) { return d.Settings, nil }

// GetTLSConfig returns the TLS configuration for the FTP server.
func (d *Driver) GetTLSConfig() (*tls.Config, error) { return nil, ErrNoTLS }
