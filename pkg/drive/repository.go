package drive

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/akdrive/akdrive/pkg/ns"
)

// DefaultQuota is the storage quota usage is measured against: 15 GiB.
const DefaultQuota int64 = 15 << 30

var ErrEmptyLink = errors.New("drive: backend returned an empty download link")

type listResponse struct {
	Data []Item `json:"data"`
}

type itemResponse struct {
	Data *Item `json:"data"`
}

// Usage is the storage consumed by the signed-in user.
type Usage struct {
	Bytes int64 `json:"bytes"`
}

// Percent returns the share of quota in use, capped at 100.
func (u Usage) Percent(quota int64) float64 {
	if quota <= 0 {
		return 0
	}
	p := float64(u.Bytes) / float64(quota) * 100
	if p > 100 {
		return 100
	}
	return p
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]Item, error) {
	var resp listResponse
	if err := c.do(ctx, get(path), query, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []Item{}, nil
	}
	return resp.Data, nil
}

func folderQuery(folderID string) url.Values {
	if folderID == "" {
		return nil
	}
	return url.Values{"folderId": {folderID}}
}

// ListFiles lists the active items of a folder; "" is the drive root.
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]Item, error) {
	return c.list(ctx, "/files", folderQuery(folderID))
}

func (c *Client) ListRecent(ctx context.Context, folderID string) ([]Item, error) {
	return c.list(ctx, "/files/recent", folderQuery(folderID))
}

func (c *Client) ListStarred(ctx context.Context, folderID string) ([]Item, error) {
	return c.list(ctx, "/files/starred", folderQuery(folderID))
}

func (c *Client) ListTrashed(ctx context.Context, folderID string) ([]Item, error) {
	return c.list(ctx, "/files/trashed", folderQuery(folderID))
}

// Search runs a server-side name search. An empty query yields no items
// without a request.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	if query == "" {
		return []Item{}, nil
	}
	return c.list(ctx, "/files/search", url.Values{"q": {query}})
}

// Upload sends files into folderID in one multipart request.
func (c *Client) Upload(ctx context.Context, folderID string, files []UploadFile) error {
	return c.upload(ctx, "/files/upload", folderID, files)
}

// UploadFolder is Upload for a dropped folder tree; the backend recreates the
// hierarchy from the relative names.
func (c *Client) UploadFolder(ctx context.Context, folderID string, files []UploadFile) error {
	return c.upload(ctx, "/files/upload-folder", folderID, files)
}

func (c *Client) upload(ctx context.Context, path, folderID string, files []UploadFile) error {
	contentType, body := mbody(folderID, files)
	ep := endpoint{method: http.MethodPost, route: path, path: path}
	return c.do(ctx, ep, nil, body, contentType, nil)
}

type createFolderRequest struct {
	Name     string        `json:"name"`
	ParentID ns.NullString `json:"parentId"`
}

// CreateFolder creates name under parentID ("" for the root) and returns the
// new folder.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*Item, error) {
	body, err := jsonBody(createFolderRequest{Name: name, ParentID: ns.NullString(parentID)})
	if err != nil {
		return nil, err
	}
	var resp itemResponse
	ep := endpoint{method: http.MethodPost, route: "/folders", path: "/folders"}
	if err = c.do(ctx, ep, nil, body, "application/json", &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "create folder returned no folder"}
	}
	if resp.Data.Kind != KindFolder {
		resp.Data.Kind = KindFolder
	}
	return resp.Data, nil
}

type renameRequest struct {
	Name string `json:"name"`
}

func (c *Client) Rename(ctx context.Context, item Item, name string) error {
	body, err := jsonBody(renameRequest{Name: name})
	if err != nil {
		return err
	}
	return c.do(ctx, item.Kind.action(http.MethodPatch, item.ID, "rename"), nil, body, "application/json", nil)
}

func (c *Client) ToggleStar(ctx context.Context, item Item) error {
	return c.do(ctx, item.Kind.action(http.MethodPatch, item.ID, "star"), nil, nil, "", nil)
}

func (c *Client) Trash(ctx context.Context, item Item) error {
	return c.do(ctx, item.Kind.action(http.MethodPatch, item.ID, "trash"), nil, nil, "", nil)
}

func (c *Client) Restore(ctx context.Context, item Item) error {
	return c.do(ctx, item.Kind.action(http.MethodPatch, item.ID, "restore"), nil, nil, "", nil)
}

func (c *Client) DeletePermanently(ctx context.Context, item Item) error {
	return c.do(ctx, item.Kind.action(http.MethodDelete, item.ID, "permanent"), nil, nil, "", nil)
}

type linkResponse struct {
	URL string `json:"url"`
}

// DownloadLink returns a time-limited link to the file, or to a zip archive
// of the folder.
func (c *Client) DownloadLink(ctx context.Context, item Item) (string, error) {
	var resp linkResponse
	if err := c.do(ctx, item.Kind.download(item.ID), nil, nil, "", &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", ErrEmptyLink
	}
	return resp.URL, nil
}

func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	var usage Usage
	if err := c.do(ctx, get("/stats/usage"), nil, nil, "", &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}
