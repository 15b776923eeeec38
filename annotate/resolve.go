package annotate

import (
	"regexp"
	"strings"
)

// letterPrefix matches the letter-wise part of a raw namespace name,
// e.g. "01_Biosample" yields "Biosample". Minimum three characters so
// numbering prefixes like "01" never match on their own.
var letterPrefix = regexp.MustCompile(`[a-zA-Z\s]{3,}`)

// Resolve maps a raw Tabbles namespace onto one of the directory's
// recognized namespace names.
//
// Reserved system namespaces (marker prefix) resolve to DefaultNamespace.
// Otherwise the namespace's letter-only part is matched case-insensitively
// as a substring against the directory, and the first containing entry
// wins. An empty result means the namespace is unmappable; callers drop
// its entries.
func Resolve(raw string, directory []string) string {
	if strings.HasPrefix(raw, Marker) {
		return DefaultNamespace
	}

	letters := letterPrefix.FindString(raw)
	if letters == "" {
		return ""
	}
	letters = strings.ToLower(letters)

	for _, namespace := range directory {
		if strings.Contains(strings.ToLower(namespace), letters) {
			return namespace
		}
	}
	return ""
}
