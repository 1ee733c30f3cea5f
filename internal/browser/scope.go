package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/akdrive/akdrive/pkg/drive"
)

// View names one of the five independent listings of a session.
type View string

const (
	ViewDrive   View = "drive"
	ViewRecent  View = "recent"
	ViewStarred View = "starred"
	ViewTrash   View = "trash"
	ViewSearch  View = "search"
)

var Views = []View{ViewDrive, ViewRecent, ViewStarred, ViewTrash, ViewSearch}

var ErrUnknownView = errors.New("unknown view")

func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", ErrUnknownView
}

// Lister is the read side of the drive backend.
type Lister interface {
	ListFiles(ctx context.Context, folderID string) ([]drive.Item, error)
	ListRecent(ctx context.Context, folderID string) ([]drive.Item, error)
	ListStarred(ctx context.Context, folderID string) ([]drive.Item, error)
	ListTrashed(ctx context.Context, folderID string) ([]drive.Item, error)
	Search(ctx context.Context, query string) ([]drive.Item, error)
}

// Scope describes which items a view lists. Fetch issues at most one request.
type Scope interface {
	View() View
	Fetch(ctx context.Context, l Lister) ([]drive.Item, error)
}

// FolderScope is a Scope that can be narrowed to a folder. "" is the root.
type FolderScope interface {
	Scope
	Folder() string
	WithFolder(id string) FolderScope
}

type AllFiles struct{ FolderID string }

func (s AllFiles) View() View                       { return ViewDrive }
func (s AllFiles) Folder() string                   { return s.FolderID }
func (s AllFiles) WithFolder(id string) FolderScope { return AllFiles{id} }
func (s AllFiles) Fetch(ctx context.Context, l Lister) ([]drive.Item, error) {
	return l.ListFiles(ctx, s.FolderID)
}

type Recent struct{ FolderID string }

func (s Recent) View() View                       { return ViewRecent }
func (s Recent) Folder() string                   { return s.FolderID }
func (s Recent) WithFolder(id string) FolderScope { return Recent{id} }
func (s Recent) Fetch(ctx context.Context, l Lister) ([]drive.Item, error) {
	return l.ListRecent(ctx, s.FolderID)
}

type Starred struct{ FolderID string }

func (s Starred) View() View                       { return ViewStarred }
func (s Starred) Folder() string                   { return s.FolderID }
func (s Starred) WithFolder(id string) FolderScope { return Starred{id} }
func (s Starred) Fetch(ctx context.Context, l Lister) ([]drive.Item, error) {
	return l.ListStarred(ctx, s.FolderID)
}

type Trash struct{ FolderID string }

func (s Trash) View() View                       { return ViewTrash }
func (s Trash) Folder() string                   { return s.FolderID }
func (s Trash) WithFolder(id string) FolderScope { return Trash{id} }
func (s Trash) Fetch(ctx context.Context, l Lister) ([]drive.Item, error) {
	return l.ListTrashed(ctx, s.FolderID)
}

// SearchResults lists the server-side matches of Query. A blank query lists
// nothing and sends no request.
type SearchResults struct{ Query string }

func (s SearchResults) View() View { return ViewSearch }
func (s SearchResults) Fetch(ctx context.Context, l Lister) ([]drive.Item, error) {
	q := strings.TrimSpace(s.Query)
	if q == "" {
		return []drive.Item{}, nil
	}
	return l.Search(ctx, q)
}

// DefaultScope returns the scope a view starts with.
func DefaultScope(v View) (Scope, error) {
	switch v {
	case ViewDrive:
		return AllFiles{}, nil
	case ViewRecent:
		return Recent{}, nil
	case ViewStarred:
		return Starred{}, nil
	case ViewTrash:
		return Trash{}, nil
	case ViewSearch:
		return SearchResults{}, nil
	}
	return nil, ErrUnknownView
}
