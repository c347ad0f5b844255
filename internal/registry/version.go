package registry

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// CompareVersions orders two artifact versions. Versions that both parse as
// semantic versions are compared numerically ("1.10" > "1.9"); otherwise the
// strings are compared lexically. Parseable versions sort before others.
func CompareVersions(a, b string) int {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
