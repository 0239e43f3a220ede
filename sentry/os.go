package sentry

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/yext/glog"
	"golang.org/x/sys/unix"
)

var (
	hostname string

	osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}
)

func init() {
	hostname, _ = os.Hostname()
}

// HostOS describes the operating system this handler runs on, which is the
// one the crashed process ran on.
func HostOS() OSContext {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		glog.Warningf("uname: %v", err)
	}
	return osContext(
		unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Release[:]),
		readOSRelease())
}

func readOSRelease() map[string]string {
	for _, p := range osReleasePaths {
		if m, err := godotenv.Read(p); err == nil {
			return m
		}
	}
	return nil
}

// osContext joins the distribution's name, version and codename with a space.
func osContext(sysname, release string, osRelease map[string]string) OSContext {
	var parts []string
	for _, key := range []string{"NAME", "VERSION_ID", "VERSION_CODENAME"} {
		if v := strings.TrimSpace(osRelease[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return OSContext{
		Name:          sysname,
		Version:       strings.Join(parts, " "),
		KernelVersion: release,
	}
}
