package downloads

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

var (
	mobileUA  = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	iosUA     = regexp.MustCompile(`iPad|iPhone|iPod`)
	androidUA = regexp.MustCompile(`Android`)
)

// Environment carries the signals the device probes look at.
type Environment struct {
	UserAgent string
	// DisplayMode is the display-mode media feature, e.g. "standalone".
	DisplayMode string
	// Standalone is set when launched from a home-screen shortcut.
	Standalone bool
	// AppMode is set when the host marks itself as an installed app.
	AppMode bool
	// MSStream marks legacy Windows Phone agents that spoof iOS.
	MSStream bool
}

// CurrentEnvironment reads the probes' inputs from NOTEKEEPER_USER_AGENT and
// NOTEKEEPER_DISPLAY_MODE, defaulting to a user agent describing this
// process.
func CurrentEnvironment() Environment {
	ua := os.Getenv("NOTEKEEPER_USER_AGENT")
	if ua == "" {
		ua = fmt.Sprintf("notekeeper (%s; %s)", runtime.GOOS, runtime.GOARCH)
	}
	mode := os.Getenv("NOTEKEEPER_DISPLAY_MODE")
	if mode == "" {
		mode = "browser"
	}
	return Environment{UserAgent: ua, DisplayMode: mode, AppMode: os.Getenv("NOTEKEEPER_APP_MODE") != ""}
}

func (e Environment) IsMobileDevice() bool {
	return mobileUA.MatchString(e.UserAgent)
}

func (e Environment) IsIOSDevice() bool {
	return iosUA.MatchString(e.UserAgent) && !e.MSStream
}

func (e Environment) IsAndroidDevice() bool {
	return androidUA.MatchString(e.UserAgent)
}

func (e Environment) IsPWAMode() bool {
	return e.DisplayMode == "standalone" || e.Standalone || e.AppMode
}

// HasStorageAccess writes and removes a probe key. Any error or panic from
// the store reports false.
func HasStorageAccess(ctx context.Context, store localstore.Repository) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if store == nil {
		return false
	}
	if err := store.Set(ctx, common.StorageProbeKey, []byte("test")); err != nil {
		return false
	}
	if err := store.Delete(ctx, common.StorageProbeKey); err != nil {
		return false
	}
	return true
}
