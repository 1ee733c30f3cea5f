package filesystem

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/akdrive/akdrive/pkg/breader"
	"github.com/akdrive/akdrive/pkg/drive"
	"github.com/akdrive/akdrive/pkg/httprange"
	"github.com/akdrive/akdrive/pkg/lreader"
)

type File struct {
	name string
	item drive.Item

	flag         int
	off          int64
	entries      []drive.Item
	readDirCount int

	fs         *Fs
	link       string
	streamRead io.ReadCloser
	reader     *breader.BReader

	// write side: data is spooled and uploaded into folderID on Close
	folderID string
	spool    afero.File
	replaces *drive.Item
	written  int64
}

func (f *File) Size() int64 {
	if f.spool != nil {
		return f.written
	}
	return f.item.Size
}
func (f *File) ModTime() time.Time         { return f.item.UpdatedAt }
func (f *File) IsDir() bool                { return f.item.IsFolder() }
func (f *File) Sys() interface{}           { return nil }
func (f *File) Stat() (os.FileInfo, error) { return f, nil }
func (f *File) Sync() error                { return nil }

func (f *File) Truncate(_ int64) error                 { return ErrNotSupported }
func (f *File) WriteAt(_ []byte, _ int64) (int, error) { return 0, ErrNotSupported }

func (f *File) Name() string {
	_, name := path.Split(f.name)
	if name == "" {
		return "/"
	}
	return name
}

func (f *File) Mode() os.FileMode {
	if f.IsDir() {
		return os.ModeDir | 0755 // Set directory mode
	}
	return 0644 // Set regular file mode
}

func (f *File) Readdirnames(n int) ([]string, error) {
	if !f.IsDir() {
		return nil, ErrIsNotDir
	}
	fi, err := f.Readdir(n)
	names := make([]string, len(fi))
	for i, f := range fi {
		names[i] = f.Name()
	}

	return names, err
}

// Readdir lists the folder once and pages through it.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.IsDir() {
		return nil, ErrIsNotDir
	}

	if f.entries == nil {
		items, err := f.fs.list(f.item.ID)
		if err != nil {
			return nil, err
		}
		f.entries = items
	}

	rest := f.entries[f.readDirCount:]
	if count > 0 && len(rest) > count {
		rest = rest[:count]
	}
	entries := make([]os.FileInfo, len(rest))
	for i, item := range rest {
		entries[i] = f.fs.newFile(path.Join(f.name, item.Name), item)
	}
	f.readDirCount += len(entries)

	if count > 0 && len(entries) == 0 {
		return entries, io.EOF
	}
	return entries, nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if f.IsDir() {
		return 0, ErrIsDir
	}
	if f.spool != nil {
		return 0, ErrNotSupported
	}
	if f.off >= f.Size() {
		return 0, io.EOF
	}
	if f.streamRead == nil {
		if err = f.openReadStream(f.off); err != nil {
			return 0, err
		}
	}
	n, err = f.streamRead.Read(p)
	f.off += int64(n)
	return n, err
}

// ReadAt fills p from off, reopening the download when off is not where the
// current stream is.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if f.IsDir() {
		return 0, ErrIsDir
	}
	if f.spool != nil {
		return 0, ErrNotSupported
	}
	if off >= f.Size() {
		return 0, io.EOF
	}
	if f.streamRead == nil || off != f.off {
		if _, err = f.Seek(off, io.SeekStart); err != nil {
			return 0, err
		}
		if err = f.openReadStream(off); err != nil {
			return 0, err
		}
	}
	n, err = f.reader.Read(p)
	f.off += int64(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}

func (f *File) Write(p []byte) (int, error) {
	if f.IsDir() {
		return 0, ErrIsDir
	}
	if f.spool == nil {
		return 0, ErrNotSupported
	}
	n, err := f.spool.Write(p)
	f.written += int64(n)
	return n, err
}

// Seek moves the read offset. The download is reopened lazily at the new
// position.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.IsDir() {
		return 0, ErrIsDir
	}
	if f.spool != nil {
		return 0, ErrNotSupported
	}

	pos := int64(0)

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.off + offset
	case io.SeekEnd:
		pos = f.Size() + offset
	}
	if pos < 0 {
		return 0, ErrInvalidSeek
	}
	if err := f.closeReadStream(); err != nil {
		return 0, err
	}
	f.off = pos

	return pos, nil
}

// Close uploads a written file into its folder. A file it overwrites is moved
// to the trash once the upload went through.
func (f *File) Close() error {
	if f.spool != nil {
		return f.upload()
	}
	return f.closeReadStream()
}

func (f *File) upload() error {
	spool := f.spool
	f.spool = nil
	defer func() {
		_ = spool.Close()
		_ = f.fs.spool.Remove(spool.Name())
	}()

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return err
	}
	ctx, cancel := f.fs.context()
	defer cancel()
	err := f.fs.repo.Upload(ctx, f.folderID, []drive.UploadFile{{Name: f.item.Name, Reader: spool}})
	if err != nil {
		return err
	}
	if f.replaces != nil {
		return f.fs.repo.Trash(ctx, *f.replaces)
	}
	return nil
}

func (f *File) openReadStream(startAt int64) error {
	if f.link == "" {
		ctx, cancel := f.fs.context()
		link, err := f.fs.repo.DownloadLink(ctx, f.item)
		cancel()
		if err != nil {
			return err
		}
		f.link = link
	}

	req, err := http.NewRequest(http.MethodGet, f.link, nil)
	if err != nil {
		return err
	}
	if startAt > 0 {
		req.Header.Set("Range", httprange.Header(startAt))
	}
	resp, err := f.fs.client.Do(req)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		r, err := httprange.ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil || r.Start != startAt {
			_ = resp.Body.Close()
			return fmt.Errorf("download %s: unexpected range %q", f.name, resp.Header.Get("Content-Range"))
		}
	case http.StatusOK:
		// the link ignored the range; skip to the offset
		if _, err = io.CopyN(io.Discard, resp.Body, startAt); err != nil {
			_ = resp.Body.Close()
			return err
		}
	default:
		_ = resp.Body.Close()
		return fmt.Errorf("download %s: status %d", f.name, resp.StatusCode)
	}

	f.streamRead = lreader.New(resp.Body, f.item.Size-startAt)
	f.reader = breader.New(f.streamRead)
	return nil
}

func (f *File) closeReadStream() error {
	if f.streamRead == nil {
		return nil
	}
	err := f.streamRead.Close()
	f.streamRead = nil
	f.reader = nil
	return err
}
