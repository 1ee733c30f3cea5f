package filesystem

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// LogFs logs every mutating call and every open at debug level, and failures
// at error level.
type LogFs struct {
	src    afero.Fs
	logger zerolog.Logger
}

// LogFsFile counts the bytes moved through a file and logs them on Close.
type LogFsFile struct {
	afero.File
	logger  zerolog.Logger
	read    int64
	written int64
	opened  time.Time
}

func NewLogFs(src afero.Fs) afero.Fs {
	return &LogFs{src: src, logger: log.With().Str("c", "fs").Logger()}
}

func (lf *LogFs) event(err error) *zerolog.Event {
	if err != nil {
		return lf.logger.Error().Err(err)
	}
	return lf.logger.Debug()
}

func (lf *LogFs) wrap(src afero.File, err error) (afero.File, error) {
	if err != nil {
		return nil, err
	}
	return &LogFsFile{File: src, logger: lf.logger, opened: time.Now()}, nil
}

func (lf *LogFs) Create(name string) (afero.File, error) {
	f, err := lf.src.Create(name)
	lf.event(err).Str("name", name).Msg("CREATE")
	return lf.wrap(f, err)
}

func (lf *LogFs) Open(name string) (afero.File, error) {
	f, err := lf.src.Open(name)
	lf.event(err).Str("name", name).Msg("OPEN")
	return lf.wrap(f, err)
}

func (lf *LogFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := lf.src.OpenFile(name, flag, perm)
	lf.event(err).Str("name", name).Int("flag", flag).Msg("OPEN_FILE")
	return lf.wrap(f, err)
}

func (lf *LogFs) Mkdir(name string, perm os.FileMode) error {
	err := lf.src.Mkdir(name, perm)
	lf.event(err).Str("name", name).Msg("MKDIR")
	return err
}

func (lf *LogFs) MkdirAll(p string, perm os.FileMode) error {
	err := lf.src.MkdirAll(p, perm)
	lf.event(err).Str("path", p).Msg("MKDIR_ALL")
	return err
}

func (lf *LogFs) Remove(name string) error {
	err := lf.src.Remove(name)
	lf.event(err).Str("name", name).Msg("TRASH")
	return err
}

func (lf *LogFs) RemoveAll(p string) error {
	err := lf.src.RemoveAll(p)
	lf.event(err).Str("path", p).Msg("TRASH_ALL")
	return err
}

func (lf *LogFs) Rename(oldname, newname string) error {
	err := lf.src.Rename(oldname, newname)
	lf.event(err).Str("oldname", oldname).Str("newname", newname).Msg("RENAME")
	return err
}

// Stat is called for nearly every FTP command; only failures other than a
// missing path are logged.
func (lf *LogFs) Stat(name string) (os.FileInfo, error) {
	fi, err := lf.src.Stat(name)
	if err != nil && !os.IsNotExist(err) {
		lf.logger.Error().Err(err).Str("name", name).Msg("STAT")
	}
	return fi, err
}

func (lf *LogFs) Name() string { return lf.src.Name() }

func (lf *LogFs) Chmod(name string, mode os.FileMode) error {
	return lf.src.Chmod(name, mode)
}

func (lf *LogFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return lf.src.Chtimes(name, atime, mtime)
}

func (lf *LogFs) Chown(name string, uid int, gid int) error {
	return lf.src.Chown(name, uid, gid)
}

func (lff *LogFsFile) fail(op string, err error) {
	if err != nil && err != io.EOF {
		lff.logger.Error().Str("name", lff.Name()).Err(err).Msg(op)
	}
}

func (lff *LogFsFile) Read(p []byte) (int, error) {
	n, err := lff.File.Read(p)
	lff.read += int64(n)
	lff.fail("READ", err)
	return n, err
}

func (lff *LogFsFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := lff.File.ReadAt(p, off)
	lff.read += int64(n)
	lff.fail("READ_AT", err)
	return n, err
}

func (lff *LogFsFile) Seek(offset int64, whence int) (int64, error) {
	n, err := lff.File.Seek(offset, whence)
	lff.fail("SEEK", err)
	return n, err
}

func (lff *LogFsFile) Write(p []byte) (int, error) {
	n, err := lff.File.Write(p)
	lff.written += int64(n)
	lff.fail("WRITE", err)
	return n, err
}

func (lff *LogFsFile) WriteString(s string) (int, error) {
	return lff.Write([]byte(s))
}

func (lff *LogFsFile) Readdir(count int) ([]os.FileInfo, error) {
	fi, err := lff.File.Readdir(count)
	lff.fail("READ_DIR", err)
	return fi, err
}

func (lff *LogFsFile) Close() error {
	err := lff.File.Close()
	e := lff.logger.Debug()
	if err != nil {
		e = lff.logger.Error().Err(err)
	}
	e.Str("name", lff.Name()).Int64("lread", lff.read).Int64("lwrite", lff.written).
		Dur("elapsed", time.Since(lff.opened)).Msg("CLOSE")
	return err
}
