// Package hostsvc is the portability shim spec.md §5 calls "host
// services": process/FS/threading primitives the core consumes as an
// external collaborator. It is deliberately thin — spec.md §1 lists it
// among the things "out of scope as external collaborators, with only
// their interfaces noted" — but the driver (C11) needs something real
// to call through, so this wraps the stdlib with the same call shape
// as the original source's minos:: namespace (file_create/file_read,
// path_get_info, timestamp_utc, ...) minus anything Windows/async that
// has no Linux-hosted equivalent worth faking.
//
// The original stashes a process-wide "job" handle in a global for
// child-process cleanup (spec.md §9); here that becomes an explicit
// value owned by the driver instead of a global.
package hostsvc

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Services is the explicit HostServices value spec.md §9's design
// notes ask for in place of a global job handle.
type Services struct{}

func New() *Services {
	return &Services{}
}

// ReadFile reads an entire source file. Host I/O errors are wrapped
// (spec.md §7.7) so the driver can log both the short message and,
// with %+v, the underlying cause.
func (s *Services) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %q", path)
	}
	return data, nil
}

func (s *Services) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "could not write %q", path)
	}
	return nil
}

func (s *Services) PathIsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (s *Services) PathGetInfo(path string) (size int64, modTime time.Time, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return 0, time.Time{}, errors.Wrapf(statErr, "could not stat %q", path)
	}
	return info.Size(), info.ModTime(), nil
}

// PageBytes mirrors minos::page_bytes(). The driver consults it to
// round AllocPool's block size and the opcode pool's commit increment
// up to a whole page before constructing them.
func (s *Services) PageBytes() int {
	return os.Getpagesize()
}

func (s *Services) TimestampUTC() int64 {
	return time.Now().UTC().UnixNano()
}
