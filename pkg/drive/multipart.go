package drive

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

// UploadFile is one part of an upload. For folder uploads Name carries the
// path relative to the dropped folder.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// mbody streams files as multipart "files" parts followed by an optional
// "folderId" field. The body is produced on demand through a pipe so large
// uploads are never buffered in memory.
func mbody(folderID string, files []UploadFile) (string, io.ReadCloser) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	_ = mw.SetBoundary(strings.ReplaceAll(uuid.NewString(), "-", ""))

	go func() {
		pw.CloseWithError(writeParts(mw, folderID, files))
	}()

	return mw.FormDataContentType(), pr
}

func writeParts(mw *multipart.Writer, folderID string, files []UploadFile) error {
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}
		if _, err = io.Copy(part, f.Reader); err != nil {
			return err
		}
	}
	if folderID != "" {
		if err := mw.WriteField("folderId", folderID); err != nil {
			return err
		}
	}
	return mw.Close()
}
