package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/auth"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Prompt indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

var errAuthRequired = errors.New("authentication required")

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated()
}

// awaitAuth waits until the store reports the wanted authentication state
// and has left the loading states.
func (a *App) awaitAuth(ctx context.Context, want bool) (auth.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	for {
		ch := a.auth.Changed()
		snap := a.auth.Snapshot()
		if !snap.IsLoading() && snap.IsAuthenticated() == want {
			return snap, true
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return a.auth.Snapshot(), false
		}
	}
}

// requireAuth is the guard in front of protected commands. It waits while
// the session is still loading and prints the notice when nobody is signed
// in.
func (a *App) requireAuth(ctx context.Context) (auth.Snapshot, error) {
	snap, err := a.auth.WaitSettled(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.IsAuthenticated() {
		printlnFn("Authentication required: please log in to access this page.")
		return snap, errAuthRequired
	}
	return snap, nil
}

func (a *App) rememberedEmail(ctx context.Context) string {
	raw, err := a.store.Get(ctx, common.RememberedEmailKey)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Register prompts for the sign-up form and creates the account. The
// password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := a.prompt("Enter your name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	role, err := a.prompt("Role (student/teacher) [student]")
	if err != nil {
		return err
	}
	if role == "" {
		role = string(models.RoleStudent)
	}

	err = a.auth.Register(ctx, models.Registration{
		Email:    email,
		Password: string(password),
		Name:     name,
		Role:     models.Role(strings.ToLower(role)),
	})
	if err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}

	if snap, ok := a.awaitAuth(ctx, true); ok {
		printlnFn(fmt.Sprintf("Registration successful. Welcome, %s!", snap.User.Name))
	} else {
		printlnFn("Registration successful. Your profile is still being prepared.")
	}
	return nil
}

// Login prompts for credentials. The email is remembered for the next
// login; the password never is.
func (a *App) Login(ctx context.Context) error {
	remembered := a.rememberedEmail(ctx)
	label := "Enter email"
	if remembered != "" {
		label = fmt.Sprintf("Enter email [%s]", remembered)
	}
	email, err := a.prompt(label)
	if err != nil {
		return err
	}
	if email == "" {
		email = remembered
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, email, string(password)); err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}
	if err := a.store.Set(ctx, common.RememberedEmailKey, []byte(email)); err != nil {
		a.log.Warn(ctx, "email not remembered", "error", err)
	}

	snap, ok := a.awaitAuth(ctx, true)
	if !ok {
		printlnFn("Signed in, but your profile could not be loaded.")
		return errAuthRequired
	}
	printlnFn(fmt.Sprintf("Login successful. Welcome back, %s!", snap.User.Name))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.awaitAuth(ctx, false)
	a.listed = nil
	printlnFn("Logged out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	snap, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}
	printProfile(snap.User)
	return nil
}

func printProfile(u *models.UserProfile) {
	printlnFn("Name:     " + u.Name)
	printlnFn("Email:    " + u.Email)
	printlnFn("Role:     " + string(u.Role))
	if u.Bio != "" {
		printlnFn("Bio:      " + u.Bio)
	}
	if u.ContactDetails != "" {
		printlnFn("Contact:  " + u.ContactDetails)
	}
	if u.Avatar != "" {
		printlnFn("Avatar:   " + u.Avatar)
	}
	printlnFn(fmt.Sprintf("Bookmarks: %d", len(u.Bookmarks)))
}

// Profile shows the profile, or with "set <field> <value>" updates one of
// name, email, bio, avatar or contact.
func (a *App) Profile(ctx context.Context, args []string) error {
	snap, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		printProfile(snap.User)
		return nil
	}
	if args[0] != "set" || len(args) < 2 {
		printlnFn("Usage: profile [set <name|email|bio|avatar|contact> <value>]")
		return nil
	}

	value := strings.Join(args[2:], " ")
	var upd models.ProfileUpdate
	switch args[1] {
	case "name":
		upd.Name = &value
	case "email":
		upd.Email = &value
	case "bio":
		upd.Bio = &value
	case "avatar":
		upd.Avatar = &value
	case "contact":
		upd.ContactDetails = &value
	default:
		printlnFn("Unknown profile field:", args[1])
		return nil
	}

	if err := a.auth.UpdateProfile(ctx, upd); err != nil {
		printlnFn("Profile update failed:", err.Error())
		return err
	}
	printlnFn("Profile updated.")
	return nil
}
