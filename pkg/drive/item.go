package drive

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/akdrive/akdrive/pkg/ns"
)

// Kind tells files and folders apart. It is decoded from the backend's "type"
// field and is the only thing consulted when choosing an endpoint.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON maps "folder" to KindFolder and everything else, including a
// missing or unknown type, to KindFile.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*k = KindFile
		return nil
	}
	if s == "folder" {
		*k = KindFolder
	} else {
		*k = KindFile
	}
	return nil
}

// Item is a file or folder as reported by the backend.
type Item struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"type"`
	Name        string        `json:"name"`
	ParentID    ns.NullString `json:"parent_id"`
	IsStarred   bool          `json:"is_starred"`
	IsTrashed   bool          `json:"is_trashed"`
	Size        int64         `json:"size,omitempty"`
	MimeType    string        `json:"mime_type,omitempty"`
	StoragePath string        `json:"storage_path,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (i *Item) IsFolder() bool { return i.Kind == KindFolder }

// Modified reports whether the item changed after it was created.
func (i *Item) Modified() bool { return !i.UpdatedAt.Equal(i.CreatedAt) }

// endpoint is one backend call. route is the path template, used as a metrics
// label so ids never end up in label values.
type endpoint struct {
	method string
	route  string
	path   string
}

func get(path string) endpoint {
	return endpoint{method: http.MethodGet, route: path, path: path}
}

// collection returns the path segment owning items of this kind.
func (k Kind) collection() string {
	switch k {
	case KindFolder:
		return "/folders"
	case KindFile:
		return "/files"
	default:
		panic(fmt.Sprintf("drive: unknown kind %d", int(k)))
	}
}

// action builds the endpoint for a per-item action such as star or trash.
func (k Kind) action(method, id, verb string) endpoint {
	c := k.collection()
	return endpoint{
		method: method,
		route:  c + "/:id/" + verb,
		path:   c + "/" + id + "/" + verb,
	}
}

// download builds the link endpoint: a single object for files, a zip archive
// for folders.
func (k Kind) download(id string) endpoint {
	switch k {
	case KindFolder:
		return endpoint{method: http.MethodGet, route: "/files/folder/:id/zip", path: "/files/folder/" + id + "/zip"}
	case KindFile:
		return endpoint{method: http.MethodGet, route: "/files/:id/download", path: "/files/" + id + "/download"}
	default:
		panic(fmt.Sprintf("drive: unknown kind %d", int(k)))
	}
}
