package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akdrive/akdrive/pkg/drive"
)

type fakeRepo struct {
	mu    sync.Mutex
	calls []string
	err   error
	link  string
}

func (f *fakeRepo) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeRepo) ToggleStar(_ context.Context, i drive.Item) error { return f.record("star " + i.ID) }
func (f *fakeRepo) Trash(_ context.Context, i drive.Item) error      { return f.record("trash " + i.ID) }
func (f *fakeRepo) Restore(_ context.Context, i drive.Item) error    { return f.record("restore " + i.ID) }
func (f *fakeRepo) DeletePermanently(_ context.Context, i drive.Item) error {
	return f.record("delete " + i.ID)
}
func (f *fakeRepo) Rename(_ context.Context, i drive.Item, name string) error {
	return f.record("rename " + i.ID + " " + name)
}
func (f *fakeRepo) CreateFolder(_ context.Context, name, parent string) (*drive.Item, error) {
	if err := f.record("mkdir " + name + " in " + parent); err != nil {
		return nil, err
	}
	return &drive.Item{ID: "new-" + name, Name: name, Kind: drive.KindFolder}, nil
}
func (f *fakeRepo) Upload(_ context.Context, folder string, files []drive.UploadFile) error {
	return f.record("upload " + names(files) + " to " + folder)
}
func (f *fakeRepo) UploadFolder(_ context.Context, folder string, files []drive.UploadFile) error {
	return f.record("upload-folder " + names(files) + " to " + folder)
}
func (f *fakeRepo) DownloadLink(_ context.Context, i drive.Item) (string, error) {
	if err := f.record("download " + i.ID); err != nil {
		return "", err
	}
	return f.link, nil
}

func names(files []drive.UploadFile) string {
	var s []string
	for _, f := range files {
		s = append(s, f.Name)
	}
	return strings.Join(s, ",")
}

type countingView struct {
	mu      sync.Mutex
	reloads int
	err     error
}

func (v *countingView) Reload(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads++
	return v.err
}

type notices struct{ got []string }

func (n *notices) Notify(m string) { n.got = append(n.got, m) }

type opener struct{ opened []string }

func (o *opener) Open(url string) error { o.opened = append(o.opened, url); return nil }

func setup(opts ...Option) (*Dispatcher, *fakeRepo, *countingView, *notices) {
	repo := &fakeRepo{link: "https://cdn.example.com/f1"}
	view := &countingView{}
	n := &notices{}
	return New(repo, view, append([]Option{WithNotifier(n)}, opts...)...), repo, view, n
}

var (
	fileItem    = drive.Item{ID: "f1", Name: "a.txt", Kind: drive.KindFile}
	trashedItem = drive.Item{ID: "t1", Name: "old.txt", Kind: drive.KindFile, IsTrashed: true}
)

func TestDispatcher_ReloadAfterMutation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(d *Dispatcher) error
		call string
	}{
		{"star", func(d *Dispatcher) error { return d.ToggleStar(ctx, fileItem) }, "star f1"},
		{"trash", func(d *Dispatcher) error { return d.MoveToTrash(ctx, fileItem) }, "trash f1"},
		{"restore", func(d *Dispatcher) error { return d.Restore(ctx, trashedItem) }, "restore t1"},
		{"delete", func(d *Dispatcher) error { return d.PermanentlyDelete(ctx, trashedItem, Confirmed(true)) }, "delete t1"},
		{"rename", func(d *Dispatcher) error { return d.Rename(ctx, fileItem, "  b.txt ") }, "rename f1 b.txt"},
		{"upload", func(d *Dispatcher) error {
			return d.UploadFiles(ctx, []drive.UploadFile{{Name: "x.bin", Reader: strings.NewReader("x")}}, "d1")
		}, "upload x.bin to d1"},
		{"upload folder", func(d *Dispatcher) error {
			return d.UploadFolder(ctx, []drive.UploadFile{{Name: "docs/x.bin", Reader: strings.NewReader("x")}}, "")
		}, "upload-folder docs/x.bin to "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, repo, view, _ := setup()
			if err := tt.run(d); err != nil {
				t.Fatal(err)
			}
			if len(repo.calls) != 1 || repo.calls[0] != tt.call {
				t.Errorf("calls = %v, want [%s]", repo.calls, tt.call)
			}
			if view.reloads != 1 {
				t.Errorf("reloads = %d, want 1", view.reloads)
			}
		})
	}
}

func TestDispatcher_FailureNoticeNoReload(t *testing.T) {
	d, repo, view, n := setup()
	repo.err = &drive.APIError{Status: 404, Message: "File not found"}

	err := d.Restore(context.Background(), trashedItem)
	var apiErr *drive.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Restore() error = %v", err)
	}
	if view.reloads != 0 {
		t.Errorf("reloaded %d times after failure", view.reloads)
	}
	if len(repo.calls) != 1 {
		t.Errorf("retried: %v", repo.calls)
	}
	if len(n.got) != 1 || n.got[0] != "File not found" {
		t.Errorf("notices = %v", n.got)
	}

	repo.err = io.ErrUnexpectedEOF
	_ = d.ToggleStar(context.Background(), fileItem)
	if n.got[1] != "Star failed" {
		t.Errorf("generic notice = %q", n.got[1])
	}

	repo.err = drive.ErrUnauthorized
	_ = d.ToggleStar(context.Background(), fileItem)
	if len(n.got) != 2 {
		t.Errorf("unauthorized failure was noticed: %v", n.got)
	}
}

func TestDispatcher_Rename(t *testing.T) {
	ctx := context.Background()
	d, repo, view, n := setup()

	for _, name := range []string{"", "   "} {
		if err := d.Rename(ctx, fileItem, name); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Rename(%q) error = %v", name, err)
		}
	}
	if err := d.Rename(ctx, fileItem, " a.txt  "); err != nil {
		t.Errorf("Rename to same name error = %v", err)
	}
	if len(repo.calls) != 0 || view.reloads != 0 || len(n.got) != 0 {
		t.Errorf("calls = %v, reloads = %d, notices = %v", repo.calls, view.reloads, n.got)
	}
}

func TestDispatcher_Preconditions(t *testing.T) {
	ctx := context.Background()
	d, repo, view, _ := setup()

	if err := d.MoveToTrash(ctx, trashedItem); !errors.Is(err, ErrAlreadyTrashed) {
		t.Errorf("MoveToTrash(trashed) error = %v", err)
	}
	if err := d.Restore(ctx, fileItem); !errors.Is(err, ErrNotTrashed) {
		t.Errorf("Restore(active) error = %v", err)
	}
	if err := d.PermanentlyDelete(ctx, trashedItem, Confirmed(false)); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("PermanentlyDelete(declined) error = %v", err)
	}
	if err := d.PermanentlyDelete(ctx, trashedItem, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("PermanentlyDelete(nil) error = %v", err)
	}
	if err := d.UploadFiles(ctx, nil, ""); !errors.Is(err, ErrNoFiles) {
		t.Errorf("UploadFiles(nil) error = %v", err)
	}
	if err := d.CreateFolder(ctx, " ", "", nil); !errors.Is(err, ErrEmptyName) {
		t.Errorf("CreateFolder(blank) error = %v", err)
	}
	if len(repo.calls) != 0 || view.reloads != 0 {
		t.Errorf("calls = %v, reloads = %d", repo.calls, view.reloads)
	}
}

type askOnce struct{ prompts []string }

func (a *askOnce) Confirm(p string) bool { a.prompts = append(a.prompts, p); return true }

func TestDispatcher_ConfirmPrompt(t *testing.T) {
	d, _, _, _ := setup()
	ask := &askOnce{}
	if err := d.PermanentlyDelete(context.Background(), trashedItem, ask); err != nil {
		t.Fatal(err)
	}
	if len(ask.prompts) != 1 || ask.prompts[0] != ConfirmPrompt {
		t.Errorf("prompts = %v", ask.prompts)
	}
}

func TestDispatcher_CreateFolderWithFiles(t *testing.T) {
	d, repo, view, _ := setup()
	files := []drive.UploadFile{
		{Name: "a.txt", Reader: strings.NewReader("a")},
		{Name: "b.txt", Reader: strings.NewReader("b")},
	}
	if err := d.CreateFolder(context.Background(), " Reports ", "d1", files); err != nil {
		t.Fatal(err)
	}
	want := []string{"mkdir Reports in d1", "upload-folder a.txt,b.txt to new-Reports"}
	if strings.Join(repo.calls, "|") != strings.Join(want, "|") {
		t.Errorf("calls = %v, want %v", repo.calls, want)
	}
	if view.reloads != 1 {
		t.Errorf("reloads = %d", view.reloads)
	}
}

func TestDispatcher_Download(t *testing.T) {
	o := &opener{}
	d, repo, view, _ := setup(WithOpener(o))

	link, err := d.Download(context.Background(), drive.Item{ID: "d9", Kind: drive.KindFolder})
	if err != nil {
		t.Fatal(err)
	}
	if link != repo.link || len(o.opened) != 1 || o.opened[0] != repo.link {
		t.Errorf("link = %q, opened = %v", link, o.opened)
	}
	if view.reloads != 0 {
		t.Error("download reloaded the view")
	}
}

func TestDispatcher_SameItemSerialised(t *testing.T) {
	repo := &blockingRepo{fakeRepo: fakeRepo{}, release: make(chan struct{}), started: make(chan struct{}, 2)}
	d := New(repo, &countingView{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.ToggleStar(context.Background(), fileItem)
		}()
	}
	<-repo.started
	time.Sleep(20 * time.Millisecond)
	select {
	case <-repo.started:
		t.Error("second action on the same item started while the first was in flight")
	default:
	}
	close(repo.release)
	wg.Wait()
}

type blockingRepo struct {
	fakeRepo
	release chan struct{}
	started chan struct{}
}

func (b *blockingRepo) ToggleStar(ctx context.Context, i drive.Item) error {
	b.started <- struct{}{}
	<-b.release
	return b.fakeRepo.ToggleStar(ctx, i)
}

func TestDispatcher_ReloadErrors(t *testing.T) {
	ctx := context.Background()

	d, _, view, n := setup()
	view.err = errors.New("connection reset")
	if err := d.ToggleStar(ctx, fileItem); err != nil {
		t.Errorf("ToggleStar() with failed reload = %v, want nil", err)
	}

	view.err = fmt.Errorf("list: %w", drive.ErrUnauthorized)
	if err := d.ToggleStar(ctx, fileItem); !errors.Is(err, drive.ErrUnauthorized) {
		t.Errorf("ToggleStar() with 401 on reload = %v, want ErrUnauthorized", err)
	}
	if len(n.got) != 0 {
		t.Errorf("notices = %v", n.got)
	}
}
