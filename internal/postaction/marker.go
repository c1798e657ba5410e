package postaction

import (
	"path"
	"regexp"
	"strings"
)

// Reserved fragment names. A fragment for target "App.go" produced by the
// "Settings" instance is written as "App$Settings_postaction.go"; once a merge
// fails it is renamed to "App$Settings_failedpostaction.go".
var (
	postActionRe       = regexp.MustCompile(`(\$\S*)?(_postaction|_gpostaction)\.`)
	failedPostActionRe = regexp.MustCompile(`(\$\S*)?(_failedpostaction|_failedgpostaction)\.`)

	fragmentNameRe = regexp.MustCompile(`^(.*?)(\$[^/]*?)?(_postaction|_gpostaction)(\..*)$`)
)

// IsPostAction reports whether p names a pending merge fragment
func IsPostAction(p string) bool {
	return postActionRe.MatchString(p)
}

// IsFailedPostAction reports whether p names a fragment whose merge failed
func IsFailedPostAction(p string) bool {
	return failedPostActionRe.MatchString(p)
}

// IsMarker reports whether p is post-action bookkeeping rather than a
// deliverable file.
func IsMarker(p string) bool {
	return IsPostAction(p) || IsFailedPostAction(p)
}

// TargetName returns the slash-separated path a fragment merges into, or
// false when rel is not a fragment.
func TargetName(rel string) (string, bool) {
	dir, base := path.Split(rel)
	m := fragmentNameRe.FindStringSubmatch(base)
	if m == nil || m[1] == "" {
		return "", false
	}
	return dir + m[1] + m[4], true
}

// FailedName returns the failed-marker name for a fragment
func FailedName(rel string) string {
	dir, base := path.Split(rel)
	m := fragmentNameRe.FindStringSubmatch(base)
	if m == nil {
		return rel
	}
	suffix := "_failed" + strings.TrimPrefix(m[3], "_")
	return dir + m[1] + m[2] + suffix + m[4]
}

// FragmentName tags a template fragment path with its instance name so
// fragments from several instances of one template do not collide.
// Paths that are not fragments, or are already tagged, are returned unchanged.
func FragmentName(rel, instance string) string {
	dir, base := path.Split(rel)
	m := fragmentNameRe.FindStringSubmatch(base)
	if m == nil || m[2] != "" || instance == "" {
		return rel
	}
	tag := "$" + strings.Join(strings.Fields(instance), "_")
	return dir + m[1] + tag + m[3] + m[4]
}
