package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

// columns that Update may set.
var columns = map[string]bool{
	"name":            true,
	"email":           true,
	"role":            true,
	"avatar":          true,
	"bio":             true,
	"contact_details": true,
	"bookmarks":       true,
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (r *PostgresRepository) Select(ctx context.Context, id string) (*models.ProfileRecord, error) {
	query :=
		`SELECT id, name, email, role, avatar, bio, contact_details, bookmarks FROM profiles
		 WHERE id = $1`

	var (
		rec                  models.ProfileRecord
		avatar, bio, contact sql.NullString
		bookmarks            []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.Role, &avatar, &bio, &contact, &bookmarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rec.Avatar = nullable(avatar)
	rec.Bio = nullable(bio)
	rec.ContactDetails = nullable(contact)
	rec.Bookmarks = []string{}
	if len(bookmarks) > 0 {
		if err := json.Unmarshal(bookmarks, &rec.Bookmarks); err != nil {
			return nil, fmt.Errorf("decode bookmarks of %s: %w", id, err)
		}
		if rec.Bookmarks == nil {
			rec.Bookmarks = []string{}
		}
	}
	return &rec, nil
}

func encodeBookmarks(b []string) ([]byte, error) {
	if b == nil {
		b = []string{}
	}
	return json.Marshal(b)
}

func (r *PostgresRepository) Insert(ctx context.Context, rec models.ProfileRecord) error {
	bookmarks, err := encodeBookmarks(rec.Bookmarks)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO profiles (id, name, email, role, avatar, bio, contact_details, bookmarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Role, rec.Avatar, rec.Bio, rec.ContactDetails, bookmarks)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update sets the given columns. Columns are written in name order.
func (r *PostgresRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		if !columns[k] {
			return fmt.Errorf("%w: unknown profile column %q", common.ErrValidation, k)
		}
		names = append(names, k)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for i, k := range names {
		v := fields[k]
		if k == "bookmarks" {
			list, ok := v.([]string)
			if !ok {
				return fmt.Errorf("%w: bookmarks must be a list of ids, got %T", common.ErrValidation, v)
			}
			raw, err := encodeBookmarks(list)
			if err != nil {
				return err
			}
			v = raw
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, v)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE profiles SET %s, updated_at = now() WHERE id = $%d`,
		strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
