package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/catalog"
	"github.com/dmitrijs2005/notekeeper/internal/client/downloads"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

var errUsage = errors.New("usage")

func (a *App) Courses(ctx context.Context) error {
	for _, c := range a.catalog.Catalog().Courses() {
		status := "available"
		if !c.Available() {
			status = "coming soon"
		}
		printlnFn(fmt.Sprintf("%-6s %-50s %d semesters, %s", c.ID, c.Name, c.Semesters, status))
	}
	return nil
}

// Subjects lists a course's semesters, or with a semester number its
// subjects.
func (a *App) Subjects(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: subjects <course> [semester]")
		return errUsage
	}
	cat := a.catalog.Catalog()
	course, ok := cat.Course(args[0])
	if !ok {
		printlnFn("Unknown course:", args[0])
		return catalog.ErrUnknownSubject
	}
	if !course.Available() {
		printlnFn(course.Name + " is coming soon.")
		return nil
	}

	if len(args) == 1 {
		for _, n := range cat.Semesters(course.ID) {
			printlnFn(fmt.Sprintf("%d. %s (%d subjects)", n, cat.SemesterTitle(course.ID, n), len(cat.Subjects(course.ID, n))))
		}
		return nil
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		printlnFn("Semester must be a number:", args[1])
		return err
	}
	subjects := cat.Subjects(course.ID, n)
	if len(subjects) == 0 {
		printlnFn("No subjects found for this semester.")
		return nil
	}
	printlnFn(cat.SemesterTitle(course.ID, n))
	for _, s := range subjects {
		printlnFn(fmt.Sprintf("  %-26s %s", s.ID, s.Name))
	}
	return nil
}

func parseLocation(args []string) (catalog.Location, error) {
	if len(args) < 3 {
		return catalog.Location{}, errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return catalog.Location{}, fmt.Errorf("semester must be a number: %q", args[1])
	}
	return catalog.Location{CourseID: args[0], SemesterID: n, SubjectID: args[2]}, nil
}

// printNotes prints notes as a numbered listing and makes it the one that
// note references resolve against.
func (a *App) printNotes(ctx context.Context, notes []models.Note) {
	a.listed = notes
	if len(notes) == 0 {
		printlnFn("No notes found.")
		return
	}
	userID := a.userID()
	for i, n := range notes {
		var flags []string
		if a.auth.IsBookmarked(n.ID) {
			flags = append(flags, "bookmarked")
		}
		if a.downloads.IsNoteDownloaded(ctx, n.ID, userID) {
			flags = append(flags, "offline")
		}
		if _, ok := a.downloads.GetCachedFile(n.ID); ok {
			flags = append(flags, "cached")
		}
		line := fmt.Sprintf("%2d. %s [%s] %s", i+1, n.Title, strings.ToUpper(n.FileType), n.Description)
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		printlnFn(line)
	}
}

// Notes lists the notes of a subject.
func (a *App) Notes(ctx context.Context, args []string) error {
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}
	loc, err := parseLocation(args)
	if err != nil {
		printlnFn("Usage: notes <course> <semester> <subject>")
		return err
	}
	notes, err := a.catalog.ListNotes(ctx, loc, a.viewer())
	if err != nil {
		printlnFn("Failed to load notes:", err.Error())
		return err
	}
	a.printNotes(ctx, notes)
	return nil
}

// resolveNote finds a note by its position in the last listing, or by id in
// that listing and then in the offline index.
func (a *App) resolveNote(ctx context.Context, args []string) (models.Note, error) {
	if len(args) == 0 {
		return models.Note{}, errUsage
	}
	ref := args[0]
	if i, err := strconv.Atoi(ref); err == nil && i >= 1 && i <= len(a.listed) {
		return a.listed[i-1], nil
	}
	for _, n := range a.listed {
		if n.ID == ref {
			return n, nil
		}
	}
	for _, n := range a.downloads.GetDownloadedNotes(ctx, a.userID()) {
		if n.ID == ref {
			return n, nil
		}
	}
	return models.Note{}, fmt.Errorf("no note %q in the last listing", ref)
}

// noteArg runs the auth guard and resolves the note argument, printing
// usage on failure.
func (a *App) noteArg(ctx context.Context, cmd string, args []string) (models.Note, error) {
	if _, err := a.requireAuth(ctx); err != nil {
		return models.Note{}, err
	}
	note, err := a.resolveNote(ctx, args)
	if err != nil {
		if errors.Is(err, errUsage) {
			printlnFn(fmt.Sprintf("Usage: %s <number|id>", cmd))
		} else {
			printlnFn(err.Error())
		}
		return models.Note{}, err
	}
	return note, nil
}

// Download saves the note's file for offline use, retrying transient
// failures.
func (a *App) Download(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "download", args)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Downloading %s...", note.FileName()))
	if err := a.downloads.DownloadNoteWithRetry(ctx, note, a.config.RetryAttempts); err != nil {
		printlnFn("Download failed: " + downloads.Hint(err))
		return err
	}
	printlnFn(fmt.Sprintf("%s is now available offline.", note.Title))
	return nil
}

// Share saves the cached copy of the note, downloading it when it is not
// cached.
func (a *App) Share(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "share", args)
	if err != nil {
		return err
	}
	where, err := a.downloads.ShareNote(ctx, note)
	if err != nil {
		printlnFn("Could not save the file: " + downloads.Hint(err))
		return err
	}
	printlnFn("Saved to " + where)
	return nil
}

// Preview caches the note's file and prints the local URL serving it.
func (a *App) Preview(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "preview", args)
	if err != nil {
		return err
	}
	f, err := a.downloads.CacheNoteFile(ctx, note)
	if err != nil {
		printlnFn("Preview failed: " + downloads.Hint(err))
		return err
	}
	printlnFn(fmt.Sprintf("%s (%s, %d bytes): %s", note.Title, f.MimeType, len(f.Data), f.URL))
	return nil
}

// Upload stores a local file as a note. Teachers only.
func (a *App) Upload(ctx context.Context, args []string) error {
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}
	loc, err := parseLocation(args)
	if err != nil || len(args) < 4 {
		printlnFn("Usage: upload <course> <semester> <subject> <file>")
		return errUsage
	}
	file := strings.Join(args[3:], " ")

	data, err := os.ReadFile(file)
	if err != nil {
		printlnFn("Cannot read file:", err.Error())
		return err
	}
	note, err := a.catalog.UploadNote(ctx, loc, filepath.Base(file), data, a.viewer())
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrForbidden):
			printlnFn("Only teachers can upload notes.")
		case errors.Is(err, catalog.ErrUnsupportedFile):
			printlnFn("Unsupported file type. Allowed: " + strings.Join(catalog.AllowedExtensions, " "))
		default:
			printlnFn("Upload failed:", err.Error())
		}
		return err
	}
	printlnFn(fmt.Sprintf("Uploaded %s (%s).", note.Title, note.ID))
	return nil
}

// RemoveNote deletes a note from storage. Teachers only.
func (a *App) RemoveNote(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "rmnote", args)
	if err != nil {
		return err
	}
	if err := a.catalog.DeleteNote(ctx, note, a.viewer()); err != nil {
		if errors.Is(err, catalog.ErrForbidden) {
			printlnFn("Only teachers can delete notes.")
		} else {
			printlnFn("Delete failed:", err.Error())
		}
		return err
	}

	kept := a.listed[:0]
	for _, n := range a.listed {
		if n.ID != note.ID {
			kept = append(kept, n)
		}
	}
	a.listed = kept
	printlnFn(fmt.Sprintf("Deleted %s.", note.Title))
	return nil
}

func (a *App) Bookmark(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "bookmark", args)
	if err != nil {
		return err
	}
	if err := a.auth.ToggleBookmark(ctx, note.ID); err != nil {
		printlnFn("Could not update bookmarks:", err.Error())
		return err
	}
	if a.auth.IsBookmarked(note.ID) {
		printlnFn(fmt.Sprintf("Bookmarked %s.", note.Title))
	} else {
		printlnFn(fmt.Sprintf("Removed %s from bookmarks.", note.Title))
	}
	return nil
}

// Bookmarks lists the bookmarked notes still present in storage.
func (a *App) Bookmarks(ctx context.Context) error {
	snap, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}
	if len(snap.User.Bookmarks) == 0 {
		a.listed = nil
		printlnFn("You have no bookmarks yet.")
		return nil
	}
	notes, err := a.catalog.FindNotes(ctx, snap.User.Bookmarks, a.viewer())
	if err != nil {
		printlnFn("Failed to load bookmarks:", err.Error())
		return err
	}
	a.printNotes(ctx, notes)
	return nil
}
