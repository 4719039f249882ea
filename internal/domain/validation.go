package domain

import "regexp"

var fileIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidFileID reports whether s can be a record id. Ids are used in URL paths.
func ValidFileID(s string) bool {
	return fileIDRe.MatchString(s)
}
