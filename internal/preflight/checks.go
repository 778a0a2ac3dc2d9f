package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess passes when path is an existing directory the current
// user can list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: path + " (" + fmt.Sprintf(format, args...) + ")"}
	}
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: %v", err)
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckAPIKey passes when key is set. The key is never echoed; envVars are
// listed in the failure detail as places to supply it.
func CheckAPIKey(name, key string, envVars ...string) Result {
	if strings.TrimSpace(key) != "" {
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
	if len(envVars) == 0 {
		return Result{Name: name, Detail: "missing"}
	}
	return Result{Name: name, Detail: "missing (set api_key in the config or " + strings.Join(envVars, " / ") + ")"}
}
