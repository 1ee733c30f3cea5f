// Package dispatcher runs the user's item actions against the backend. Every
// successful mutation reloads the view it came from; failures are reported
// once through the Notifier and never retried.
package dispatcher

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/metrics"
	"github.com/akdrive/akdrive/pkg/drive"
	"github.com/akdrive/akdrive/pkg/locker"
	"github.com/akdrive/akdrive/pkg/validator"
)

// ConfirmPrompt is asked before an item is deleted for good.
const ConfirmPrompt = "Permanently delete? This cannot be undone."

var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNoFiles        = errors.New("no files selected")
	ErrAlreadyTrashed = errors.New("item is already in trash")
	ErrNotTrashed     = errors.New("item is not in trash")
	ErrNotConfirmed   = errors.New("permanent delete not confirmed")
)

// Repository is the write side of the drive backend.
type Repository interface {
	ToggleStar(ctx context.Context, item drive.Item) error
	Trash(ctx context.Context, item drive.Item) error
	Restore(ctx context.Context, item drive.Item) error
	DeletePermanently(ctx context.Context, item drive.Item) error
	Rename(ctx context.Context, item drive.Item, name string) error
	CreateFolder(ctx context.Context, name, parentID string) (*drive.Item, error)
	Upload(ctx context.Context, folderID string, files []drive.UploadFile) error
	UploadFolder(ctx context.Context, folderID string, files []drive.UploadFile) error
	DownloadLink(ctx context.Context, item drive.Item) (string, error)
}

// Reloader is the view an action was started from.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Notifier shows a blocking notice to the user.
type Notifier interface {
	Notify(message string)
}

// Opener opens a link in a new browsing context.
type Opener interface {
	Open(url string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Confirmed is a Confirmer with a fixed answer, for callers that already
// asked.
type Confirmed bool

func (c Confirmed) Confirm(string) bool { return bool(c) }

type Option func(*Dispatcher)

func WithNotifier(n Notifier) Option { return func(d *Dispatcher) { d.notifier = n } }

func WithOpener(o Opener) Option { return func(d *Dispatcher) { d.opener = o } }

// WithLocker shares the per-item lock with other dispatchers of a session.
func WithLocker(l *locker.Locker) Option { return func(d *Dispatcher) { d.locker = l } }

type Dispatcher struct {
	repo     Repository
	view     Reloader
	notifier Notifier
	opener   Opener
	locker   *locker.Locker
	validate *validator.Validate
	logger   zerolog.Logger
}

func New(repo Repository, view Reloader, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:     repo,
		view:     view,
		locker:   locker.New(),
		validate: validator.New(),
		logger:   log.With().Str("c", "dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) ToggleStar(ctx context.Context, item drive.Item) error {
	return d.finish(ctx, "star", d.locked(item, func() error {
		return d.repo.ToggleStar(ctx, item)
	}))
}

func (d *Dispatcher) MoveToTrash(ctx context.Context, item drive.Item) error {
	if item.IsTrashed {
		return ErrAlreadyTrashed
	}
	return d.finish(ctx, "trash", d.locked(item, func() error {
		return d.repo.Trash(ctx, item)
	}))
}

func (d *Dispatcher) Restore(ctx context.Context, item drive.Item) error {
	if !item.IsTrashed {
		return ErrNotTrashed
	}
	return d.finish(ctx, "restore", d.locked(item, func() error {
		return d.repo.Restore(ctx, item)
	}))
}

// PermanentlyDelete removes a trashed item for good once c confirms.
func (d *Dispatcher) PermanentlyDelete(ctx context.Context, item drive.Item, c Confirmer) error {
	if !item.IsTrashed {
		return ErrNotTrashed
	}
	if c == nil || !c.Confirm(ConfirmPrompt) {
		return ErrNotConfirmed
	}
	return d.finish(ctx, "delete", d.locked(item, func() error {
		return d.repo.DeletePermanently(ctx, item)
	}))
}

// Rename renames item to the trimmed name. Renaming to the current name does
// nothing.
func (d *Dispatcher) Rename(ctx context.Context, item drive.Item, name string) error {
	name = strings.TrimSpace(name)
	if d.validate.Var(name, "notblank") != nil {
		return ErrEmptyName
	}
	if name == item.Name {
		return nil
	}
	return d.finish(ctx, "rename", d.locked(item, func() error {
		return d.repo.Rename(ctx, item, name)
	}))
}

// CreateFolder creates a folder under parentID and, when files are given,
// uploads them into it as one batch.
func (d *Dispatcher) CreateFolder(ctx context.Context, name, parentID string, files []drive.UploadFile) error {
	name = strings.TrimSpace(name)
	if d.validate.Var(name, "notblank") != nil {
		return ErrEmptyName
	}
	created, err := d.repo.CreateFolder(ctx, name, parentID)
	if err == nil && len(files) > 0 {
		err = d.repo.UploadFolder(ctx, created.ID, files)
	}
	return d.finish(ctx, "create folder", err)
}

func (d *Dispatcher) UploadFiles(ctx context.Context, files []drive.UploadFile, folderID string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	return d.finish(ctx, "upload", d.repo.Upload(ctx, folderID, files))
}

// UploadFolder uploads a dropped folder tree; names carry relative paths.
func (d *Dispatcher) UploadFolder(ctx context.Context, files []drive.UploadFile, folderID string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	return d.finish(ctx, "upload", d.repo.UploadFolder(ctx, folderID, files))
}

// Download fetches the item's link and hands it to the Opener. The view is
// not reloaded.
func (d *Dispatcher) Download(ctx context.Context, item drive.Item) (string, error) {
	link, err := d.repo.DownloadLink(ctx, item)
	if err == nil && d.opener != nil {
		err = d.opener.Open(link)
	}
	metrics.RecordAction("download", err)
	if err != nil {
		d.report("download", err)
		return "", err
	}
	return link, nil
}

func (d *Dispatcher) locked(item drive.Item, fn func() error) error {
	d.locker.Acquire(item.ID)
	defer d.locker.Release(item.ID)
	return fn()
}

// finish reloads the view after a successful action or reports the failure.
func (d *Dispatcher) finish(ctx context.Context, action string, err error) error {
	metrics.RecordAction(action, err)
	if err != nil {
		d.report(action, err)
		return err
	}
	// a failed reload shows up as the view's error state; a lost session
	// still has to reach the caller
	if rerr := d.view.Reload(ctx); rerr != nil {
		d.logger.Debug().Str("action", action).Err(rerr).Msg("reload after action failed")
		if errors.Is(rerr, drive.ErrUnauthorized) {
			return rerr
		}
	}
	return nil
}

func (d *Dispatcher) report(action string, err error) {
	d.logger.Warn().Str("action", action).Err(err).Msg("action failed")
	if d.notifier == nil || errors.Is(err, drive.ErrUnauthorized) {
		return
	}
	d.notifier.Notify(Notice(action, err))
}

// Notice is the text shown for a failed action: the backend's own message
// when it sent one.
func Notice(action string, err error) string {
	var apiErr *drive.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.ToUpper(action[:1]) + action[1:] + " failed"
}
