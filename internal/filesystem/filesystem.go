// Package filesystem exposes the signed-in user's drive as an afero.Fs. Paths
// are resolved by listing each folder from the root; removing moves items to
// the trash.
package filesystem

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/akdrive/akdrive/pkg/drive"
)

var (
	ErrIsDir        = &os.PathError{Err: errors.New("is a directory")}
	ErrIsNotDir     = &os.PathError{Err: errors.New("is not a directory")}
	ErrNotSupported = &os.PathError{Err: errors.New("fs doesn't support this operation")}
	ErrInvalidSeek  = &os.PathError{Err: errors.New("invalid seek offset")}
	ErrCrossFolder  = &os.PathError{Err: errors.New("rename across folders is not supported")}
	ErrReadOnly     = os.ErrPermission
)

// Repository is the part of the drive backend the filesystem needs.
type Repository interface {
	ListFiles(ctx context.Context, folderID string) ([]drive.Item, error)
	CreateFolder(ctx context.Context, name, parentID string) (*drive.Item, error)
	Upload(ctx context.Context, folderID string, files []drive.UploadFile) error
	Rename(ctx context.Context, item drive.Item, name string) error
	Trash(ctx context.Context, item drive.Item) error
	DownloadLink(ctx context.Context, item drive.Item) (string, error)
}

type Fs struct {
	repo    Repository
	client  *http.Client
	spool   afero.Fs
	timeout time.Duration
	lists   singleflight.Group
}

type Option func(*Fs)

// WithHTTPClient sets the client used to fetch download links.
func WithHTTPClient(c *http.Client) Option { return func(fs *Fs) { fs.client = c } }

// WithSpool sets where written files are buffered before upload.
func WithSpool(spool afero.Fs) Option { return func(fs *Fs) { fs.spool = spool } }

// WithTimeout bounds every backend call except downloads.
func WithTimeout(d time.Duration) Option { return func(fs *Fs) { fs.timeout = d } }

func New(repo Repository, opts ...Option) afero.Fs {
	fs := &Fs{
		repo:    repo,
		client:  http.DefaultClient,
		spool:   afero.NewOsFs(),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return NewLogFs(fs)
}

func (fs *Fs) Name() string                           { return "AkdriveFs" }
func (fs *Fs) Chown(_ string, _, _ int) error         { return ErrNotSupported }
func (fs *Fs) Chmod(_ string, _ os.FileMode) error    { return ErrNotSupported }
func (fs *Fs) Chtimes(_ string, _, _ time.Time) error { return ErrNotSupported }

func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *Fs) Mkdir(name string, _ os.FileMode) error {
	parent, base, err := fs.parent(name)
	if err != nil {
		return err
	}
	if _, found, err := fs.child(parent.ID, base); err != nil {
		return err
	} else if found {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}
	ctx, cancel := fs.context()
	defer cancel()
	_, err = fs.repo.CreateFolder(ctx, base, parent.ID)
	return err
}

func (fs *Fs) MkdirAll(p string, _ os.FileMode) error {
	dir := root
	for _, part := range split(p) {
		item, found, err := fs.child(dir.ID, part)
		if err != nil {
			return err
		}
		if !found {
			ctx, cancel := fs.context()
			created, err := fs.repo.CreateFolder(ctx, part, dir.ID)
			cancel()
			if err != nil {
				return err
			}
			item = *created
		} else if !item.IsFolder() {
			return ErrIsNotDir
		}
		dir = item
	}
	return nil
}

func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile supported flags, O_WRONLY, O_CREATE, O_TRUNC, O_RDONLY. Writes
// always replace the whole file.
func (fs *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if !CheckFlag(flag, os.O_WRONLY|os.O_RDONLY|os.O_CREATE|os.O_TRUNC) {
		return nil, ErrReadOnly
	}

	if !CheckFlag(os.O_WRONLY, flag) {
		item, err := fs.resolve(name)
		if err != nil {
			return nil, err
		}
		return fs.newFile(name, item), nil
	}

	parent, base, err := fs.parent(name)
	if err != nil {
		return nil, err
	}
	existing, found, err := fs.child(parent.ID, base)
	if err != nil {
		return nil, err
	}
	if found && existing.IsFolder() {
		return nil, ErrIsDir
	}
	if !found && !CheckFlag(os.O_CREATE, flag) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	spool, err := afero.TempFile(fs.spool, "", "akdrive-*")
	if err != nil {
		return nil, err
	}
	f := fs.newFile(name, drive.Item{Name: base, Kind: drive.KindFile, UpdatedAt: time.Now()})
	f.flag = flag
	f.folderID = parent.ID
	f.spool = spool
	if found {
		f.replaces = &existing
	}
	return f, nil
}

func (fs *Fs) Remove(name string) error {
	item, err := fs.resolve(name)
	if err != nil {
		return err
	}
	if item.ID == "" {
		return ErrNotSupported
	}
	ctx, cancel := fs.context()
	defer cancel()
	return fs.repo.Trash(ctx, item)
}

func (fs *Fs) RemoveAll(p string) error {
	err := fs.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Rename renames an item in place. Moving between folders is not supported.
func (fs *Fs) Rename(oldname, newname string) error {
	oldDir, _ := path.Split(path.Clean("/" + oldname))
	newDir, base := path.Split(path.Clean("/" + newname))
	if oldDir != newDir {
		return ErrCrossFolder
	}
	item, err := fs.resolve(oldname)
	if err != nil {
		return err
	}
	if item.ID == "" || base == "" {
		return ErrNotSupported
	}
	ctx, cancel := fs.context()
	defer cancel()
	return fs.repo.Rename(ctx, item, base)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	item, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.newFile(name, item), nil
}

func CheckFlag(flag int, allowedFlags int) bool {
	return flag == (flag & allowedFlags)
}

func (fs *Fs) newFile(name string, item drive.Item) *File {
	return &File{name: path.Clean("/" + name), item: item, fs: fs, flag: os.O_RDONLY}
}

func (fs *Fs) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), fs.timeout)
}

// root is the drive root. It has no id; listing it lists the top level.
var root = drive.Item{Name: "/", Kind: drive.KindFolder}

func split(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// resolve walks p from the root.
func (fs *Fs) resolve(p string) (drive.Item, error) {
	item := root
	for _, part := range split(p) {
		if !item.IsFolder() {
			return drive.Item{}, ErrIsNotDir
		}
		next, found, err := fs.child(item.ID, part)
		if err != nil {
			return drive.Item{}, err
		}
		if !found {
			return drive.Item{}, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
		}
		item = next
	}
	return item, nil
}

// parent resolves the folder holding p and returns it with p's base name.
func (fs *Fs) parent(p string) (drive.Item, string, error) {
	dir, base := path.Split(path.Clean("/" + p))
	if base == "" {
		return drive.Item{}, "", ErrNotSupported
	}
	parent, err := fs.resolve(dir)
	if err != nil {
		return drive.Item{}, "", err
	}
	if !parent.IsFolder() {
		return drive.Item{}, "", ErrIsNotDir
	}
	return parent, base, nil
}

func (fs *Fs) child(folderID, name string) (drive.Item, bool, error) {
	items, err := fs.list(folderID)
	if err != nil {
		return drive.Item{}, false, err
	}
	for _, item := range items {
		if item.Name == name {
			return item, true, nil
		}
	}
	return drive.Item{}, false, nil
}

// list returns the active items of a folder. Concurrent listings of the same
// folder share one request.
func (fs *Fs) list(folderID string) ([]drive.Item, error) {
	v, err, _ := fs.lists.Do(folderID, func() (interface{}, error) {
		ctx, cancel := fs.context()
		defer cancel()
		items, err := fs.repo.ListFiles(ctx, folderID)
		if err != nil {
			return nil, err
		}
		active := make([]drive.Item, 0, len(items))
		for _, item := range items {
			if !item.IsTrashed {
				active = append(active, item)
			}
		}
		return active, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]drive.Item), nil
}
