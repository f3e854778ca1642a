package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context, args []string) error

	Courses(ctx context.Context) error
	Subjects(ctx context.Context, args []string) error
	Notes(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	Preview(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	RemoveNote(ctx context.Context, args []string) error
	Bookmark(ctx context.Context, args []string) error
	Bookmarks(ctx context.Context) error

	Downloads(ctx context.Context) error
	RemoveDownload(ctx context.Context, args []string) error
	ClearDownloads(ctx context.Context) error

	Chat(ctx context.Context, args []string) error
	ClearChat(ctx context.Context) error
	Contact(ctx context.Context) error
	Env(ctx context.Context) error
}

const (
	guestHelp = "Available commands: register, login, courses, subjects, notes, chat, clearchat, env, help, exit"
	userHelp  = "Available commands: whoami, profile, courses, subjects, notes, download, share, preview, upload, rmnote, " +
		"bookmark, bookmarks, downloads, rmdownload, cleardownloads, chat, clearchat, contact, env, logout, help, exit"
)

// runREPL reads commands from r until EOF, "exit" or "quit". The first token
// selects the command; the rest are its arguments. Handlers report their own
// outcome, so returned errors are not printed again here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))

		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}

		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "profile":
			_ = a.Profile(ctx, args)

		case "courses":
			_ = a.Courses(ctx)
		case "subjects":
			_ = a.Subjects(ctx, args)
		case "notes":
			_ = a.Notes(ctx, args)
		case "download":
			_ = a.Download(ctx, args)
		case "share":
			_ = a.Share(ctx, args)
		case "preview":
			_ = a.Preview(ctx, args)
		case "upload":
			_ = a.Upload(ctx, args)
		case "rmnote":
			_ = a.RemoveNote(ctx, args)
		case "bookmark":
			_ = a.Bookmark(ctx, args)
		case "bookmarks":
			_ = a.Bookmarks(ctx)

		case "downloads":
			_ = a.Downloads(ctx)
		case "rmdownload":
			_ = a.RemoveDownload(ctx, args)
		case "cleardownloads":
			_ = a.ClearDownloads(ctx)

		case "chat":
			_ = a.Chat(ctx, args)
		case "clearchat":
			_ = a.ClearChat(ctx)
		case "contact":
			_ = a.Contact(ctx)
		case "env":
			_ = a.Env(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
