package tabbles

import "strings"

// NormalizePath converts an OMERO client import path into the Windows path
// form Tabbles stores. OMERO records drive letters as "C;/data/img.tif";
// Tabbles knows the file as "C:\data\img.tif".
func NormalizePath(raw string) string {
	cleaned := strings.ReplaceAll(raw, ";", ":")
	return strings.ReplaceAll(cleaned, "/", `\`)
}
