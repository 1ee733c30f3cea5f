package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/akdrive/akdrive/pkg/drive"
	"github.com/akdrive/akdrive/pkg/ns"
)

const content = "The quick brown fox jumps over the lazy dog"

type memRepo struct {
	mu       sync.Mutex
	items    []drive.Item
	uploads  map[string]string
	trashed  []string
	renamed  map[string]string
	lists    int
	next     int
	download string
}

func newMemRepo(download string) *memRepo {
	return &memRepo{
		items: []drive.Item{
			{ID: "d1", Name: "Docs", Kind: drive.KindFolder},
			{ID: "f1", Name: "fox.txt", Size: int64(len(content))},
			{ID: "f2", Name: "gone.txt", IsTrashed: true},
			{ID: "f3", Name: "a.txt", ParentID: ns.NullString("d1"), Size: int64(len(content))},
		},
		uploads:  map[string]string{},
		renamed:  map[string]string{},
		download: download,
	}
}

func (r *memRepo) ListFiles(_ context.Context, folderID string) ([]drive.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	var out []drive.Item
	for _, it := range r.items {
		if string(it.ParentID) == folderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) CreateFolder(_ context.Context, name, parentID string) (*drive.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	it := drive.Item{ID: fmt.Sprintf("n%d", r.next), Name: name, Kind: drive.KindFolder, ParentID: ns.NullString(parentID)}
	r.items = append(r.items, it)
	return &it, nil
}

func (r *memRepo) Upload(_ context.Context, folderID string, files []drive.UploadFile) error {
	for _, f := range files {
		b, err := io.ReadAll(f.Reader)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.uploads[folderID+"/"+f.Name] = string(b)
		r.mu.Unlock()
	}
	return nil
}

func (r *memRepo) Rename(_ context.Context, item drive.Item, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renamed[item.ID] = name
	return nil
}

func (r *memRepo) Trash(_ context.Context, item drive.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trashed = append(r.trashed, item.ID)
	return nil
}

func (r *memRepo) DownloadLink(_ context.Context, item drive.Item) (string, error) {
	return r.download + "/" + item.ID, nil
}

func newTestFs(t *testing.T) (afero.Fs, *memRepo) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "fox.txt", time.Time{}, strings.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	repo := newMemRepo(srv.URL)
	return New(repo, WithHTTPClient(srv.Client()), WithSpool(afero.NewMemMapFs())), repo
}

func TestFs_Readdir(t *testing.T) {
	fs, _ := newTestFs(t)
	dir, err := fs.Open("/")
	if err != nil {
		t.Fatal(err)
	}
	defer dir.Close()

	first, err := dir.Readdir(1)
	if err != nil || len(first) != 1 || first[0].Name() != "Docs" || !first[0].IsDir() {
		t.Fatalf("Readdir(1) = %v, %v", first, err)
	}
	rest, err := dir.Readdir(10)
	if err != nil || len(rest) != 1 || rest[0].Name() != "fox.txt" {
		t.Fatalf("Readdir(10) = %v, %v", rest, err)
	}
	if _, err = dir.Readdir(1); err != io.EOF {
		t.Errorf("Readdir past end error = %v, want io.EOF", err)
	}
}

func TestFs_Stat(t *testing.T) {
	fs, _ := newTestFs(t)
	tests := []struct {
		path    string
		dir     bool
		wantErr error
	}{
		{path: "/", dir: true},
		{path: "/Docs", dir: true},
		{path: "/Docs/a.txt"},
		{path: "Docs//a.txt"},
		{path: "/gone.txt", wantErr: os.ErrNotExist},
		{path: "/Docs/missing", wantErr: os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fi, err := fs.Stat(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Stat() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if fi.IsDir() != tt.dir {
				t.Errorf("IsDir() = %v", fi.IsDir())
			}
		})
	}
}

func TestFile_Read(t *testing.T) {
	fs, _ := newTestFs(t)
	f, err := fs.Open("/fox.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil || string(b) != content {
		t.Fatalf("ReadAll() = %q, %v", b, err)
	}

	if _, err = f.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	p := make([]byte, 5)
	if _, err = io.ReadFull(f, p); err != nil || string(p) != "quick" {
		t.Errorf("read after seek = %q, %v", p, err)
	}

	p = make([]byte, 3)
	n, err := f.ReadAt(p, 40)
	if n != 3 || string(p) != "dog" {
		t.Errorf("ReadAt(40) = %d %q %v", n, p, err)
	}
	p = make([]byte, 10)
	n, err = f.ReadAt(p, 40)
	if n != 3 || err != io.EOF {
		t.Errorf("ReadAt past end = %d, %v", n, err)
	}
}

func TestFs_Write(t *testing.T) {
	fs, repo := newTestFs(t)

	f, err := fs.Create("/Docs/new.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = f.WriteString("hello "); err != nil {
		t.Fatal(err)
	}
	if _, err = f.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}
	if err = f.Close(); err != nil {
		t.Fatal(err)
	}
	if got := repo.uploads["d1/new.txt"]; got != "hello world" {
		t.Errorf("uploaded %q", got)
	}
	if len(repo.trashed) != 0 {
		t.Errorf("new file trashed %v", repo.trashed)
	}

	// overwriting uploads a new copy and trashes the old one
	f, err = fs.OpenFile("/fox.txt", os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write(bytes.Repeat([]byte("x"), 3))
	if err = f.Close(); err != nil {
		t.Fatal(err)
	}
	if repo.uploads["/fox.txt"] != "xxx" || len(repo.trashed) != 1 || repo.trashed[0] != "f1" {
		t.Errorf("uploads = %v, trashed = %v", repo.uploads, repo.trashed)
	}

	if _, err = fs.OpenFile("/missing.txt", os.O_WRONLY, 0644); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("open missing for write error = %v", err)
	}
	if _, err = fs.OpenFile("/fox.txt", os.O_RDWR, 0644); !errors.Is(err, os.ErrPermission) {
		t.Errorf("O_RDWR error = %v", err)
	}
	if _, err = fs.Create("/Docs"); !errors.Is(err, ErrIsDir) {
		t.Errorf("create over folder error = %v", err)
	}
}

func TestFs_Mkdir(t *testing.T) {
	fs, repo := newTestFs(t)

	if err := fs.Mkdir("/Docs", 0755); !errors.Is(err, os.ErrExist) {
		t.Errorf("Mkdir(existing) error = %v", err)
	}
	if err := fs.Mkdir("/Music", 0755); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/Docs/2024/q1", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat("/Docs/2024/q1"); err != nil {
		t.Errorf("Stat() after MkdirAll: %v", err)
	}
	if err := fs.MkdirAll("/fox.txt/sub", 0755); !errors.Is(err, ErrIsNotDir) {
		t.Errorf("MkdirAll through a file error = %v", err)
	}
	if repo.next != 3 {
		t.Errorf("created %d folders, want 3", repo.next)
	}
}

func TestFs_RemoveAndRename(t *testing.T) {
	fs, repo := newTestFs(t)

	if err := fs.Remove("/Docs/a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := fs.RemoveAll("/nothing/here"); err != nil {
		t.Errorf("RemoveAll(missing) error = %v", err)
	}
	if err := fs.Remove("/"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Remove(/) error = %v", err)
	}
	if len(repo.trashed) != 1 || repo.trashed[0] != "f3" {
		t.Errorf("trashed = %v", repo.trashed)
	}

	if err := fs.Rename("/fox.txt", "/dog.txt"); err != nil {
		t.Fatal(err)
	}
	if repo.renamed["f1"] != "dog.txt" {
		t.Errorf("renamed = %v", repo.renamed)
	}
	if err := fs.Rename("/fox.txt", "/Docs/fox.txt"); !errors.Is(err, ErrCrossFolder) {
		t.Errorf("cross-folder rename error = %v", err)
	}
}

func TestFs_NotSupported(t *testing.T) {
	fs, _ := newTestFs(t)
	if err := fs.Chmod("/fox.txt", 0600); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Chmod() error = %v", err)
	}
	if err := fs.Chtimes("/fox.txt", time.Now(), time.Now()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Chtimes() error = %v", err)
	}
}
