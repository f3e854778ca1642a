package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

func ptr[T any](v T) *T { return &v }

func TestNote_Validate(t *testing.T) {
	valid := Note{ID: "n1", Title: "Midterm", FileURL: "https://x/notes/bca/1/python/1000-midterm.pdf"}

	tests := []struct {
		name string
		mut  func(n *Note)
		ok   bool
	}{
		{"valid", func(n *Note) {}, true},
		{"missing id", func(n *Note) { n.ID = "" }, false},
		{"missing title", func(n *Note) { n.Title = "" }, false},
		{"missing url", func(n *Note) { n.FileURL = "" }, false},
		{"relative url", func(n *Note) { n.FileURL = "/notes/a.pdf" }, false},
		{"garbage url", func(n *Note) { n.FileURL = "not a url" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := valid
			tc.mut(&n)
			err := n.Validate()
			if tc.ok {
				assert.NoError(t, err)
				assert.True(t, n.Valid())
				return
			}
			assert.True(t, errors.Is(err, common.ErrInvalidNote))
			assert.False(t, n.Valid())
		})
	}

	var nilNote *Note
	assert.ErrorIs(t, nilNote.Validate(), common.ErrInvalidNote)
}

func TestNote_JSONOmitsCachedBlobURL(t *testing.T) {
	n := Note{ID: "n1", Title: "t", FileURL: "https://x/y", CachedBlobURL: "http://127.0.0.1/blob/abc"}
	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "blob")
	assert.Contains(t, string(b), `"fileUrl":"https://x/y"`)
}

func TestNote_FileName(t *testing.T) {
	assert.Equal(t, "Midterm.pdf", (&Note{Title: "Midterm", FileType: "pdf"}).FileName())
	assert.Equal(t, "Midterm", (&Note{Title: "Midterm"}).FileName())
}

func TestProfileRecordMapping(t *testing.T) {
	rec := ProfileRecord{
		ID:             "u1",
		Name:           "Asha",
		Email:          "asha@example.com",
		Role:           "teacher",
		Bio:            ptr("hi"),
		ContactDetails: ptr("+1 555"),
	}

	p := ProfileFromRecord(rec)
	want := UserProfile{
		ID:             "u1",
		Name:           "Asha",
		Email:          "asha@example.com",
		Role:           RoleTeacher,
		Bio:            "hi",
		ContactDetails: "+1 555",
		Bookmarks:      []string{},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("ProfileFromRecord mismatch (-want +got):\n%s", diff)
	}

	back := RecordFromProfile(p)
	rec.Bookmarks = []string{}
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Fatalf("RecordFromProfile mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileRecord_WireNames(t *testing.T) {
	b, err := json.Marshal(ProfileRecord{ID: "u1", ContactDetails: ptr("x")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"contact_details":"x"`)
	assert.Contains(t, string(b), `"avatar":null`)
}

func TestProfileUpdate_FieldsAndApply(t *testing.T) {
	u := ProfileUpdate{
		Name:      ptr(""),
		Email:     ptr("new@example.com"),
		Bio:       ptr(""),
		Bookmarks: &[]string{"a", "b"},
	}

	assert.Equal(t, map[string]any{
		"email":     "new@example.com",
		"bio":       "",
		"bookmarks": []string{"a", "b"},
	}, u.Fields())

	p := UserProfile{ID: "u1", Name: "Old", Email: "old@example.com", Role: RoleStudent, Bio: "text"}
	u.Apply(&p)
	assert.Equal(t, "Old", p.Name)
	assert.Equal(t, "new@example.com", p.Email)
	assert.Equal(t, "", p.Bio)
	assert.Equal(t, []string{"a", "b"}, p.Bookmarks)
	assert.Equal(t, RoleStudent, p.Role)
}

func TestProfileUpdate_Validate(t *testing.T) {
	assert.NoError(t, ProfileUpdate{}.Validate())
	assert.NoError(t, ProfileUpdate{Role: ptr(RoleTeacher)}.Validate())
	assert.ErrorIs(t, ProfileUpdate{Email: ptr("nope")}.Validate(), common.ErrValidation)
	assert.ErrorIs(t, ProfileUpdate{Role: ptr(Role("admin"))}.Validate(), common.ErrValidation)
}

func TestRegistration_Validate(t *testing.T) {
	ok := Registration{Email: "a@b.co", Password: "secret1", Name: "A", Role: RoleStudent}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Role = "admin"
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)

	bad = ok
	bad.Password = "123"
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)

	bad = ok
	bad.Name = ""
	assert.ErrorIs(t, bad.Validate(), common.ErrValidation)
}

func TestUserProfile_HasBookmark(t *testing.T) {
	p := UserProfile{Bookmarks: []string{"n1", "n2"}}
	assert.True(t, p.HasBookmark("n2"))
	assert.False(t, p.HasBookmark("n3"))
}

func TestSession_UserID(t *testing.T) {
	var s *Session
	assert.Equal(t, "", s.UserID())
	assert.Equal(t, "", (&Session{}).UserID())
	assert.Equal(t, "u1", (&Session{User: &AuthUser{ID: "u1"}}).UserID())
}
