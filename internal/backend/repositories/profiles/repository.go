// Package profiles stores the user profile rows. Bookmarks are a JSON array
// column.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type Repository interface {
	Select(ctx context.Context, id string) (*models.ProfileRecord, error)
	Insert(ctx context.Context, rec models.ProfileRecord) error
	Update(ctx context.Context, id string, fields map[string]any) error
}
