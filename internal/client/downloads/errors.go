package downloads

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Category groups download failures by the remedy offered to the user.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryNetwork
	CategoryTimeout
	CategoryNotFound
	CategoryBucketMissing
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryNetwork:
		return "network"
	case CategoryTimeout:
		return "timeout"
	case CategoryNotFound:
		return "not_found"
	case CategoryBucketMissing:
		return "bucket_missing"
	default:
		return "unknown"
	}
}

// Classify inspects err by identity first and by message second. Bucket
// errors are checked before not-found because their text contains it.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	msg := strings.ToLower(err.Error())

	var netErr net.Error
	switch {
	case errors.Is(err, common.ErrInvalidNote):
		return CategoryValidation
	case errors.Is(err, client.ErrBucketNotFound) || strings.Contains(msg, "bucket not found"):
		return CategoryBucketMissing
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return CategoryTimeout
	case errors.Is(err, client.ErrNotFound), errors.Is(err, ErrUnresolvablePath),
		strings.Contains(msg, "not found"), strings.Contains(msg, "404"):
		return CategoryNotFound
	case errors.Is(err, client.ErrUnavailable), errors.As(err, &netErr),
		strings.Contains(msg, "network"), strings.Contains(msg, "failed to fetch"),
		strings.Contains(msg, "connection refused"):
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// Hint returns the remediation text shown after a failed download.
func Hint(err error) string {
	switch Classify(err) {
	case CategoryValidation:
		return "This note is missing required information and cannot be downloaded."
	case CategoryNetwork:
		return "Network error detected. Please check your internet connection and try again."
	case CategoryTimeout:
		return "Download request timed out. Please try again on a more stable connection."
	case CategoryNotFound:
		return "The file could not be found on the server. It may have been moved or deleted."
	case CategoryBucketMissing:
		return "Storage bucket not found. The file may not be accessible."
	default:
		return "Please try again or contact support if the issue persists"
	}
}
