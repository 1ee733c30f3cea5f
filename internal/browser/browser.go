// Package browser implements the folder-scoped listing behind every view.
//
// A Browser is Loading, Idle or Error. Each reload takes a sequence number and
// only the answer to the latest one may change the state, so a slow response
// to an older scope can never overwrite a newer listing.
package browser

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akdrive/akdrive/internal/metrics"
	"github.com/akdrive/akdrive/pkg/drive"
)

// MsgLoadFailed is shown for every failed reload, whatever the cause.
const MsgLoadFailed = "Failed to load items"

var (
	ErrNotNavigable      = errors.New("view has no folders to enter")
	ErrNotFolder         = errors.New("item is not a folder")
	ErrFilterUnsupported = errors.New("view has no local filter")
	ErrNotSearch         = errors.New("view is not a search view")
)

type State int

const (
	StateLoading State = iota
	StateIdle
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "error":
		*s = StateError
	default:
		*s = StateLoading
	}
	return nil
}

// Crumb is one folder entered from the root of a view.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is a consistent copy of a view for rendering.
type Snapshot struct {
	View     View         `json:"view"`
	State    State        `json:"state"`
	FolderID string       `json:"folderId,omitempty"`
	Trail    []Crumb      `json:"trail,omitempty"`
	Query    string       `json:"query,omitempty"`
	Filter   string       `json:"filter,omitempty"`
	Items    []drive.Item `json:"items"`
	Count    int          `json:"count"`
	Error    string       `json:"error,omitempty"`
}

type Option func(*Browser)

// WithLocalFilter lets SetFilter narrow the fetched items in memory.
func WithLocalFilter() Option {
	return func(b *Browser) { b.filterable = true }
}

type Browser struct {
	mu         sync.RWMutex
	lister     Lister
	scope      Scope
	state      State
	items      []drive.Item
	errMsg     string
	seq        uint64
	trail      []Crumb
	filterable bool
	filter     string
	logger     zerolog.Logger
}

// New returns a Browser in the Loading state. Nothing is fetched until the
// first Reload.
func New(scope Scope, lister Lister, opts ...Option) *Browser {
	b := &Browser{
		lister: lister,
		scope:  scope,
		state:  StateLoading,
		logger: log.With().Str("c", "browser").Str("view", string(scope.View())).Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Browser) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scope.View()
}

// Reload fetches the current scope. On failure the list is cleared, the
// browser shows MsgLoadFailed and the error is returned. A response that was
// overtaken by a newer reload is dropped and reported as success.
func (b *Browser) Reload(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq, scope := b.seq, b.scope
	b.state = StateLoading
	b.mu.Unlock()

	items, err := scope.Fetch(ctx, b.lister)

	b.mu.Lock()
	defer b.mu.Unlock()

	view := string(scope.View())
	if seq != b.seq {
		metrics.RecordStaleResponse(view)
		b.logger.Debug().Uint64("seq", seq).Uint64("latest", b.seq).Msg("discarded stale response")
		return nil
	}
	metrics.RecordReload(view, err)

	if err != nil {
		b.items = nil
		b.state = StateError
		b.errMsg = MsgLoadFailed
		b.logger.Warn().Err(err).Msg("reload failed")
		return err
	}
	b.items = active(scope.View(), items)
	b.state = StateIdle
	b.errMsg = ""
	b.filter = ""
	return nil
}

// EnterFolder narrows the view to folder id and reloads.
func (b *Browser) EnterFolder(ctx context.Context, id string) error {
	b.mu.Lock()
	fs, ok := b.scope.(FolderScope)
	if !ok {
		b.mu.Unlock()
		return ErrNotNavigable
	}
	name := id
	if item, found := b.lookup(id); found {
		if !item.IsFolder() {
			b.mu.Unlock()
			return ErrNotFolder
		}
		name = item.Name
	}
	b.trail = pushCrumb(b.trail, Crumb{ID: id, Name: name})
	b.scope = fs.WithFolder(id)
	b.mu.Unlock()

	return b.Reload(ctx)
}

// ExitToRoot returns the view to its root and reloads.
func (b *Browser) ExitToRoot(ctx context.Context) error {
	b.mu.Lock()
	fs, ok := b.scope.(FolderScope)
	if !ok {
		b.mu.Unlock()
		return ErrNotNavigable
	}
	b.trail = nil
	b.scope = fs.WithFolder("")
	b.mu.Unlock()

	return b.Reload(ctx)
}

// SetQuery runs a new search. The search only re-executes when the trimmed
// query differs from the current one.
func (b *Browser) SetQuery(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	b.mu.Lock()
	current, ok := b.scope.(SearchResults)
	if !ok {
		b.mu.Unlock()
		return ErrNotSearch
	}
	if strings.TrimSpace(current.Query) == query {
		b.mu.Unlock()
		return nil
	}
	b.scope = SearchResults{Query: query}
	b.mu.Unlock()

	return b.Reload(ctx)
}

// SetFilter narrows the displayed items by name without a request and returns
// them. Blank text shows every fetched item.
func (b *Browser) SetFilter(text string) ([]drive.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.filterable {
		return nil, ErrFilterUnsupported
	}
	b.filter = text
	return FilterByName(b.items, text), nil
}

// Lookup finds a fetched item by id, ignoring the local filter.
func (b *Browser) Lookup(id string) (drive.Item, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookup(id)
}

func (b *Browser) lookup(id string) (drive.Item, bool) {
	for _, item := range b.items {
		if item.ID == id {
			return item, true
		}
	}
	return drive.Item{}, false
}

func (b *Browser) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		View:   b.scope.View(),
		State:  b.state,
		Filter: b.filter,
		Error:  b.errMsg,
		Trail:  append([]Crumb(nil), b.trail...),
	}
	switch s := b.scope.(type) {
	case FolderScope:
		snap.FolderID = s.Folder()
	case SearchResults:
		snap.Query = s.Query
	}
	items := b.items
	if b.filterable {
		items = FilterByName(items, b.filter)
	}
	snap.Items = append([]drive.Item{}, items...)
	snap.Count = len(snap.Items)
	return snap
}

// pushCrumb appends c, or cuts the trail back to c when it is already on it.
func pushCrumb(trail []Crumb, c Crumb) []Crumb {
	for i, t := range trail {
		if t.ID == c.ID {
			return trail[:i+1]
		}
	}
	return append(trail, c)
}

// active drops trashed items from every view but the trash.
func active(v View, items []drive.Item) []drive.Item {
	if v == ViewTrash {
		return items
	}
	out := items[:0:0]
	for _, item := range items {
		if !item.IsTrashed {
			out = append(out, item)
		}
	}
	return out
}
