package constant

import (
	"fmt"
	"os/user"
	"runtime"
	"time"
)

func env(path string) string {
	sysType := runtime.GOOS

	currentUser, err := user.Current()
	if err != nil {
		fmt.Println("can not read user:", err)
		return "/opt" + path
	}

	username := currentUser.Username

	if sysType == "darwin" {
		return "/opt" + path
	} else if sysType == "linux" {
		if username == "root" {
			return "/opt" + path
		}

		return ".rdlc" + path // non-root users keep state under the working directory
	} else {
		return "."
	}
}

var ConfigPath = env("/rdlc/etc")
var StatePath = env("/rdlc/state") // checkpoint files live here
var LogPath = env("/rdlc/logs/")

const (
	// DefaultRedoReadSleep is the idle poll interval of the scheduler.
	DefaultRedoReadSleep = 10000 * time.Microsecond

	// DefaultCheckpointInterval bounds how stale the persisted
	// position may grow during one long log scan.
	DefaultCheckpointInterval = 600 * time.Second

	DefaultConnectTimeout = 5 * time.Second
)
