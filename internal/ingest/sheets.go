package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

const sheetsHost = "docs.google.com/spreadsheets"

var (
	rxSheetID  = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	rxSheetGID = regexp.MustCompile(`[#&]gid=([0-9]+)`)
)

// IsSheetURL reports whether location is a Google Sheets link.
func IsSheetURL(location string) bool {
	return strings.Contains(location, sheetsHost)
}

// ExportURL rewrites a Google Sheets sharing link into its CSV export URL,
// keeping the tab id when the link has one. Other locations are returned
// unchanged.
func ExportURL(location string) string {
	if !IsSheetURL(location) {
		return location
	}
	m := rxSheetID.FindStringSubmatch(location)
	if m == nil {
		return location
	}
	export := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1])
	if g := rxSheetGID.FindStringSubmatch(location); g != nil {
		export += "&gid=" + g[1]
	}
	return export
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
