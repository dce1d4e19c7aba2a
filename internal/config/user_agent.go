package config

import (
	"fmt"
	"runtime"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// UserAgent identifies this service to upstream APIs.
func UserAgent() string {
	return fmt.Sprintf("go-tongue/%s (%s; %s) %s", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
