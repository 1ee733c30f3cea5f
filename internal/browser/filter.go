package browser

import (
	"strings"

	"github.com/akdrive/akdrive/pkg/drive"
)

// FilterByName keeps the items whose name contains text, ignoring case.
// Blank text keeps everything.
func FilterByName(items []drive.Item, text string) []drive.Item {
	if strings.TrimSpace(text) == "" {
		return items
	}
	q := strings.ToLower(text)
	out := make([]drive.Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), q) {
			out = append(out, item)
		}
	}
	return out
}
