package api

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/akdrive/akdrive/internal/dispatcher"
	"github.com/akdrive/akdrive/internal/workspace"
	"github.com/akdrive/akdrive/pkg/drive"
)

// item resolves :view and :id to an item listed in that view.
func item(c *fiber.Ctx, deps *Deps) (*workspace.View, drive.Item, error) {
	wv, err := view(c, deps)
	if err != nil {
		return nil, drive.Item{}, err
	}
	it, ok := wv.Browser.Lookup(c.Params("id"))
	if !ok {
		return nil, drive.Item{}, fiber.NewError(StatusNotFound, ErrItemNotFound)
	}
	return wv, it, nil
}

// acted answers with the reloaded view after a successful action.
func acted(c *fiber.Ctx, wv *workspace.View, action string, err error) error {
	if err != nil {
		return fiberError(action, err)
	}
	return c.Status(StatusOk).JSON(Response{Message: action + " done", Data: wv.Browser.Snapshot()})
}

func StarHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		return acted(c, wv, "star", wv.Actions.ToggleStar(c.UserContext(), it))
	}
}

func TrashHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		return acted(c, wv, "trash", wv.Actions.MoveToTrash(c.UserContext(), it))
	}
}

func RestoreHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		return acted(c, wv, "restore", wv.Actions.Restore(c.UserContext(), it))
	}
}

func RenameHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(RenameRequest)
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		return acted(c, wv, "rename", wv.Actions.Rename(c.UserContext(), it, req.Name))
	}
}

// DeleteHandler deletes a trashed item for good. The body must carry the
// user's answer to the confirmation prompt.
func DeleteHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(DeleteRequest)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return fiber.NewError(StatusBadRequest, ErrBadRequest)
			}
		}
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		err = wv.Actions.PermanentlyDelete(c.UserContext(), it, dispatcher.Confirmed(req.Confirm))
		return acted(c, wv, "delete", err)
	}
}

// DownloadHandler answers with the item's link, or redirects to it when
// ?redirect=true.
func DownloadHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, it, err := item(c, deps)
		if err != nil {
			return err
		}
		link, err := wv.Actions.Download(c.UserContext(), it)
		if err != nil {
			return fiberError("download", err)
		}
		if c.QueryBool("redirect") {
			return c.Redirect(link, fiber.StatusFound)
		}
		return c.Status(StatusOk).JSON(Response{Message: "link created", Data: Link{URL: link}})
	}
}

// UploadHandler uploads the multipart "files" into the "folderId" field, or
// the view's current folder. For folder uploads the optional "paths" values
// carry each file's relative path, since part file names lose directories.
func UploadHandler(deps *Deps, folder bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}
		files, closeAll, err := uploadFiles(form)
		if err != nil {
			return err
		}
		defer closeAll()

		folderID := formValue(form, "folderId")
		if folderID == "" {
			folderID = wv.Browser.Snapshot().FolderID
		}
		if folder {
			return acted(c, wv, "upload", wv.Actions.UploadFolder(c.UserContext(), files, folderID))
		}
		return acted(c, wv, "upload", wv.Actions.UploadFiles(c.UserContext(), files, folderID))
	}
}

// CreateFolderHandler creates the "name" folder in the view's current
// folder and uploads any "files" into it.
func CreateFolderHandler(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wv, err := view(c, deps)
		if err != nil {
			return err
		}
		req := new(RenameRequest)
		var files []drive.UploadFile
		if form, ferr := c.MultipartForm(); ferr == nil {
			req.Name = formValue(form, "name")
			var closeAll func()
			if files, closeAll, err = uploadFiles(form); err != nil {
				return err
			}
			defer closeAll()
		} else if err = c.BodyParser(req); err != nil {
			return fiber.NewError(StatusBadRequest, ErrBadRequest)
		}

		parentID := wv.Browser.Snapshot().FolderID
		err = wv.Actions.CreateFolder(c.UserContext(), req.Name, parentID, files)
		if err != nil {
			return fiberError("create folder", err)
		}
		return c.Status(StatusCreated).JSON(Response{Message: "folder created", Data: wv.Browser.Snapshot()})
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func uploadFiles(form *multipart.Form) ([]drive.UploadFile, func(), error) {
	headers := form.File["files"]
	paths := form.Value["paths"]
	files := make([]drive.UploadFile, 0, len(headers))
	var opened []io.Closer
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		name := fh.Filename
		if len(paths) == len(headers) && paths[i] != "" {
			name = paths[i]
		}
		files = append(files, drive.UploadFile{Name: name, Reader: f})
	}
	return files, closeAll, nil
}
