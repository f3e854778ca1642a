package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/downloads"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

var (
	ErrForbidden       = errors.New("only teachers can manage notes")
	ErrUnknownSubject  = errors.New("unknown course, semester or subject")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyUpload     = errors.New("empty file")
)

// AllowedExtensions are the upload types teachers may store.
var AllowedExtensions = []string{".pdf", ".doc", ".docx", ".ppt", ".pptx", ".jpg", ".jpeg", ".png", ".gif"}

// isoMillis matches the ISO-8601 form used for upload dates.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Viewer is who a listing is built for.
type Viewer struct {
	UserID    string
	IsTeacher bool
}

func (v Viewer) uploader() string {
	if v.UserID != "" {
		return v.UserID
	}
	return "Teacher"
}

// Location is a subject folder in the hierarchy.
type Location struct {
	CourseID   string
	SemesterID int
	SubjectID  string
}

// Path is course/semester/subject.
func (l Location) Path() string {
	return fmt.Sprintf("%s/%d/%s", l.CourseID, l.SemesterID, l.SubjectID)
}

// NoteFromObject synthesizes a note from a storage entry named
// <unixMillis>-<filename>. When the prefix is not a timestamp the object's
// modification time is used and the whole name is the file name.
func NoteFromObject(obj models.StorageObject, fileURL string, loc Location, viewer Viewer) models.Note {
	fileName := obj.Name
	uploaded := obj.UpdatedAt

	if prefix, rest, ok := strings.Cut(obj.Name, "-"); ok {
		if ms, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			fileName = rest
			uploaded = time.UnixMilli(ms)
		}
	}
	uploaded = uploaded.UTC()

	title, _, _ := strings.Cut(fileName, ".")
	fileType := ""
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		fileType = strings.ToLower(fileName[i+1:])
	}

	return models.Note{
		ID:          obj.ID,
		Title:       title,
		Description: "Note uploaded on " + uploaded.Format("02/01/2006"),
		FileURL:     fileURL,
		FileType:    fileType,
		UploadDate:  uploaded.Format(isoMillis),
		UploadedBy:  viewer.uploader(),
		SubjectID:   loc.SubjectID,
		SemesterID:  loc.SemesterID,
		CourseID:    loc.CourseID,
		IsOwnUpload: viewer.IsTeacher,
	}
}

type Service struct {
	storage client.Storage
	catalog *Catalog
	bucket  string
	now     func() time.Time
	log     logging.Logger
}

func NewService(storage client.Storage, cat *Catalog, bucket string, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	if bucket == "" {
		bucket = downloads.DefaultBucket
	}
	return &Service{
		storage: storage,
		catalog: cat,
		bucket:  bucket,
		now:     time.Now,
		log:     log.With("component", "catalog"),
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) check(loc Location) error {
	if _, ok := s.catalog.Subject(loc.CourseID, loc.SemesterID, loc.SubjectID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubject, loc.Path())
	}
	return nil
}

// ListNotes lists the notes stored under a subject. Folder placeholders are
// skipped.
func (s *Service) ListNotes(ctx context.Context, loc Location, viewer Viewer) ([]models.Note, error) {
	if err := s.check(loc); err != nil {
		return nil, err
	}

	objs, err := s.storage.List(ctx, loc.Path())
	if err != nil {
		s.log.Error(ctx, "error loading notes from storage", "path", loc.Path(), "error", err)
		return nil, fmt.Errorf("list notes: %w", err)
	}

	notes := make([]models.Note, 0, len(objs))
	for _, obj := range objs {
		if obj.Name == "" || strings.HasPrefix(obj.Name, ".") {
			continue
		}
		fileURL := s.storage.PublicURL(loc.Path() + "/" + obj.Name)
		notes = append(notes, NoteFromObject(obj, fileURL, loc, viewer))
	}
	return notes, nil
}

func allowed(ext string) bool {
	for _, a := range AllowedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// UploadNote stores data as <unixMillis>-<fileName> under the subject and
// returns the resulting note.
func (s *Service) UploadNote(ctx context.Context, loc Location, fileName string, data []byte, viewer Viewer) (models.Note, error) {
	if !viewer.IsTeacher {
		return models.Note{}, ErrForbidden
	}
	if err := s.check(loc); err != nil {
		return models.Note{}, err
	}

	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := path.Ext(name)
	if !allowed(ext) {
		return models.Note{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if len(data) == 0 {
		return models.Note{}, ErrEmptyUpload
	}

	now := s.now()
	objName := fmt.Sprintf("%d-%s", now.UnixMilli(), name)
	key := loc.Path() + "/" + objName
	mime := downloads.MimeType(strings.TrimPrefix(strings.ToLower(ext), "."))

	if err := s.storage.Upload(ctx, key, data, mime); err != nil {
		s.log.Error(ctx, "error uploading note", "path", key, "error", err)
		return models.Note{}, fmt.Errorf("upload note: %w", err)
	}
	s.log.Info(ctx, "note uploaded", "path", key, "size", len(data))

	// The listing assigns the id; look the object up so the note matches it.
	obj := models.StorageObject{Name: objName, Size: int64(len(data)), UpdatedAt: now}
	if objs, err := s.storage.List(ctx, loc.Path()); err == nil {
		for _, o := range objs {
			if o.Name == objName {
				obj = o
				break
			}
		}
	}
	if obj.ID == "" {
		obj.ID = key
	}
	return NoteFromObject(obj, s.storage.PublicURL(key), loc, viewer), nil
}

// DeleteNote removes the object behind note. The path comes from the note
// URL, or from the note's subject folder and the URL's last segment.
func (s *Service) DeleteNote(ctx context.Context, note models.Note, viewer Viewer) error {
	if !viewer.IsTeacher {
		return ErrForbidden
	}
	if err := note.Validate(); err != nil {
		return err
	}

	key, err := downloads.ResolveStoragePath(note.FileURL, s.bucket)
	if err != nil {
		u, perr := url.Parse(note.FileURL)
		if perr != nil || note.CourseID == "" || note.SubjectID == "" {
			return err
		}
		loc := Location{CourseID: note.CourseID, SemesterID: note.SemesterID, SubjectID: note.SubjectID}
		key = loc.Path() + "/" + path.Base(u.Path)
	}

	if err := s.storage.Remove(ctx, []string{key}); err != nil {
		s.log.Error(ctx, "error deleting note", "note_id", note.ID, "path", key, "error", err)
		return fmt.Errorf("delete note: %w", err)
	}
	s.log.Info(ctx, "note deleted", "note_id", note.ID, "path", key)
	return nil
}

// FindNotes walks every subject of the available courses and returns the
// notes whose ids are in ids. Subjects that fail to list are skipped.
func (s *Service) FindNotes(ctx context.Context, ids []string, viewer Viewer) ([]models.Note, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	found := []models.Note{}
	if len(want) == 0 {
		return found, nil
	}

	for _, course := range s.catalog.Courses() {
		if !course.Available() {
			continue
		}
		for _, n := range s.catalog.Semesters(course.ID) {
			for _, subj := range s.catalog.Subjects(course.ID, n) {
				if err := ctx.Err(); err != nil {
					return found, err
				}
				loc := Location{CourseID: course.ID, SemesterID: n, SubjectID: subj.ID}
				notes, err := s.ListNotes(ctx, loc, viewer)
				if err != nil {
					continue
				}
				for _, note := range notes {
					if _, ok := want[note.ID]; ok {
						found = append(found, note)
					}
				}
			}
		}
	}
	return found, nil
}
