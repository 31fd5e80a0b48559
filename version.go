package cw

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// versionString is this library's release version. It is compared
// against Defaults.MinimumConfigVersion when a Config is loaded, the
// same role VersionCheckEnabled plays against a minimum admin-protocol
// version in the teacher's admin.go.
const versionString = "1.0.0"

// Version is the parsed form of versionString, computed once at
// package init so callers never pay the parse cost.
var Version *version.Version

func init() {
	v, err := version.NewVersion(versionString)
	if err != nil {
		panic(fmt.Sprintf("cw: invalid built-in version string %q: %v", versionString, err))
	}
	Version = v
}

// CheckMinimumVersion returns an error if Version is older than
// minimum. An empty minimum string is always satisfied.
func CheckMinimumVersion(minimum string) error {
	if minimum == "" {
		return nil
	}
	min, err := version.NewVersion(minimum)
	if err != nil {
		return ErrInvalid
	}
	if Version.LessThan(min) {
		return ErrNotSupported
	}
	return nil
}
