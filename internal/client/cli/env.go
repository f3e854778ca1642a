package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/downloads"
)

// Env prints what the device probes report for this process.
func (a *App) Env(ctx context.Context) error {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	printlnFn("User agent:     " + a.env.UserAgent)
	printlnFn("Mobile device:  " + yesNo(a.env.IsMobileDevice()))
	printlnFn("iOS device:     " + yesNo(a.env.IsIOSDevice()))
	printlnFn("Android device: " + yesNo(a.env.IsAndroidDevice()))
	printlnFn("Installed app:  " + yesNo(a.env.IsPWAMode()))
	printlnFn("Local storage:  " + yesNo(downloads.HasStorageAccess(ctx, a.store)))
	printlnFn(fmt.Sprintf("Download dir:   %s", a.config.DownloadDir))
	return nil
}
