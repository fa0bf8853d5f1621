package version

import (
	"regexp"
	"strings"
)

var releaseLinePattern = regexp.MustCompile(`^\d{1,2}\.\d{1,2}$`)

// MatchesNumbering reports whether tag is exactly <prefix>M.N.P with 1-2
// digit major and minor and a 1-4 digit patch component.
func MatchesNumbering(tag, prefix string) bool {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d{1,2}\.\d{1,2}\.\d{1,4}$`)
	return re.MatchString(tag)
}

// MatchesReleaseLine reports whether tag is <prefix><releaseLine>.P with a
// 1-4 digit patch component. The release line must itself be a valid
// major.minor pair.
func MatchesReleaseLine(tag, prefix, releaseLine string) bool {
	if !IsReleaseLine(releaseLine) {
		return false
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix+releaseLine) + `\.\d{1,4}$`)
	return re.MatchString(tag)
}

// IsReleaseLine reports whether s is a major.minor pair such as "10.0".
func IsReleaseLine(s string) bool {
	return releaseLinePattern.MatchString(s)
}

// IsMajorVersion reports whether the patch component of tag is literally 0.
func IsMajorVersion(tag string) bool {
	idx := strings.LastIndex(tag, ".")
	return idx >= 0 && tag[idx+1:] == "0"
}
