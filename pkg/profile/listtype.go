package profile

import "fmt"

// ListType identifies a user-specific torrent list category on a tracker.
type ListType string

const (
	ListSnatched   ListType = "snatched"
	ListUploaded   ListType = "uploaded"
	ListDownloaded ListType = "downloaded"
)

// ListTypes enumerates every recognized list type in display order.
var ListTypes = []ListType{ListSnatched, ListUploaded, ListDownloaded}

// ParseListType validates a user-supplied list type string.
func ParseListType(s string) (ListType, error) {
	lt := ListType(s)
	if !lt.Valid() {
		return "", fmt.Errorf("unsupported list type %q (expected one of: snatched, uploaded, downloaded)", s)
	}
	return lt, nil
}

func (lt ListType) Valid() bool {
	switch lt {
	case ListSnatched, ListUploaded, ListDownloaded:
		return true
	}
	return false
}

func (lt ListType) String() string {
	return string(lt)
}
