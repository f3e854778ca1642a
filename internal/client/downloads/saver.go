package downloads

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/filex"
)

// Saver hands a downloaded file to the user, e.g. by writing it into their
// downloads folder. It returns where the file ended up.
type Saver interface {
	Save(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// ObjectURLs issues and revokes URLs that serve in-memory blobs.
type ObjectURLs interface {
	Create(data []byte, mimeType string) string
	Revoke(url string) error
}

// DirSaver writes files into Dir.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	return filex.WriteFile(s.Dir, name, data)
}

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// MimeType maps a note file type to a MIME type, defaulting to
// application/octet-stream.
func MimeType(fileType string) string {
	if m, ok := mimeTypes[strings.ToLower(fileType)]; ok {
		return m
	}
	return "application/octet-stream"
}
