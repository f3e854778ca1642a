package downloads

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrUnresolvablePath = errors.New("cannot resolve storage path")

// ResolveStoragePath returns the object path inside bucket that fileURL
// points at: everything after the first "/<bucket>/" segment, URL-decoded.
func ResolveStoragePath(fileURL, bucket string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolvablePath, err)
	}

	marker := "/" + strings.Trim(bucket, "/") + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q has no %q segment", ErrUnresolvablePath, fileURL, marker)
	}

	rest := u.Path[idx+len(marker):]
	if rest == "" {
		return "", fmt.Errorf("%w: %q names the bucket only", ErrUnresolvablePath, fileURL)
	}
	return rest, nil
}
