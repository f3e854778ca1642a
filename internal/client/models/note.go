// Package models defines the domain types of the notekeeper client: notes,
// user profiles, sessions, storage objects and chat messages.
package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Note is one uploaded study document. Notes are synthesized from storage
// listings; there is no separate metadata table.
type Note struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	FileURL     string `json:"fileUrl" validate:"required,url"`
	FileType    string `json:"fileType,omitempty"`
	UploadDate  string `json:"uploadDate,omitempty"`
	UploadedBy  string `json:"uploadedBy,omitempty"`
	SubjectID   string `json:"subjectId,omitempty"`
	SemesterID  int    `json:"semesterId,omitempty"`
	CourseID    string `json:"courseId,omitempty"`
	IsOwnUpload bool   `json:"isOwnUpload,omitempty"`

	// CachedBlobURL is set only while the file sits in the in-memory blob
	// cache and is never serialized.
	CachedBlobURL string `json:"-"`
}

// Validate reports why n cannot be downloaded, shared or bookmarked. The
// returned error wraps common.ErrInvalidNote.
func (n *Note) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nil note", common.ErrInvalidNote)
	}
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidNote, err)
	}
	return nil
}

// Valid is Validate() == nil.
func (n *Note) Valid() bool {
	return n.Validate() == nil
}

// FileName is the name a note is saved under: title plus extension.
func (n *Note) FileName() string {
	if n.FileType == "" {
		return n.Title
	}
	return n.Title + "." + n.FileType
}
