// Package workspace holds the five independent views of the signed-in user.
// Views are mounted on first use and thrown away together on sign-out.
package workspace

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/browser"
	"github.com/akdrive/akdrive/internal/dispatcher"
	"github.com/akdrive/akdrive/pkg/drive"
	"github.com/akdrive/akdrive/pkg/locker"
)

// Repository is everything the views need from the backend.
type Repository interface {
	browser.Lister
	dispatcher.Repository
}

// View pairs a view's listing with the actions started from it.
type View struct {
	Browser *browser.Browser
	Actions *dispatcher.Dispatcher

	mount sync.Once
}

type Workspace struct {
	mu       sync.Mutex
	repo     Repository
	notifier dispatcher.Notifier
	opener   dispatcher.Opener
	locker   *locker.Locker
	views    map[browser.View]*View
}

type Option func(*Workspace)

func WithNotifier(n dispatcher.Notifier) Option { return func(w *Workspace) { w.notifier = n } }

func WithOpener(o dispatcher.Opener) Option { return func(w *Workspace) { w.opener = o } }

func New(repo Repository, opts ...Option) *Workspace {
	w := &Workspace{
		repo:     repo,
		notifier: logNotifier{},
		locker:   locker.New(),
		views:    map[browser.View]*View{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// View returns view v, mounting it with an initial reload on first use. A
// failed initial reload leaves the view in its error state; only a lost
// session is returned as an error.
func (w *Workspace) View(ctx context.Context, v browser.View) (*View, error) {
	scope, err := browser.DefaultScope(v)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	view, ok := w.views[v]
	if !ok {
		view = w.newView(v, scope)
		w.views[v] = view
	}
	w.mu.Unlock()

	var mountErr error
	view.mount.Do(func() {
		mountErr = view.Browser.Reload(ctx)
	})
	if errors.Is(mountErr, drive.ErrUnauthorized) {
		return nil, mountErr
	}
	return view, nil
}

func (w *Workspace) newView(v browser.View, scope browser.Scope) *View {
	var opts []browser.Option
	if v == browser.ViewStarred {
		opts = append(opts, browser.WithLocalFilter())
	}
	b := browser.New(scope, w.repo, opts...)

	dopts := []dispatcher.Option{
		dispatcher.WithNotifier(w.notifier),
		dispatcher.WithLocker(w.locker),
	}
	if w.opener != nil {
		dopts = append(dopts, dispatcher.WithOpener(w.opener))
	}
	return &View{Browser: b, Actions: dispatcher.New(w.repo, b, dopts...)}
}

// Reset discards every view. In-flight work on old views can no longer
// reach the new ones.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.views = map[browser.View]*View{}
	log.Debug().Str("c", "workspace").Msg("views discarded")
}

// Mounted returns the number of views currently mounted.
func (w *Workspace) Mounted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.views)
}

type logNotifier struct{}

func (logNotifier) Notify(message string) {
	log.Warn().Str("c", "workspace").Msg(message)
}
