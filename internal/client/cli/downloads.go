package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Downloads lists the notes saved for offline use by the signed-in user.
func (a *App) Downloads(ctx context.Context) error {
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}
	notes := a.downloads.GetDownloadedNotes(ctx, a.userID())
	if len(notes) == 0 {
		a.listed = nil
		printlnFn("No downloaded notes. Use 'download <number>' on a listing.")
		return nil
	}
	a.listed = notes
	for i, n := range notes {
		printlnFn(fmt.Sprintf("%2d. %s [%s] %s/%d/%s, %s",
			i+1, n.Title, strings.ToUpper(n.FileType), n.CourseID, n.SemesterID, n.SubjectID, n.Description))
	}
	return nil
}

func (a *App) RemoveDownload(ctx context.Context, args []string) error {
	note, err := a.noteArg(ctx, "rmdownload", args)
	if err != nil {
		return err
	}
	if !a.downloads.DeleteDownloadedNote(ctx, note.ID, a.userID()) {
		printlnFn("Could not remove " + note.Title + " from downloads.")
		return nil
	}
	printlnFn("Removed " + note.Title + " from downloads.")
	return nil
}

func (a *App) ClearDownloads(ctx context.Context) error {
	if _, err := a.requireAuth(ctx); err != nil {
		return err
	}
	n := len(a.downloads.GetDownloadedNotes(ctx, a.userID()))
	if !a.downloads.DeleteAllDownloadedNotes(ctx, a.userID()) {
		printlnFn("Could not clear downloads.")
		return nil
	}
	a.listed = nil
	printlnFn("Cleared " + strconv.Itoa(n) + " downloaded notes.")
	return nil
}
