package species

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
)

// Species is one taxon to harvest
type Species struct {
	TaxonID   int
	Name      string
	FolderKey string
}

// New builds a Species and derives its folder key from name
func New(taxonID int, name string) Species {
	return Species{
		TaxonID:   taxonID,
		Name:      name,
		FolderKey: FolderKey(name),
	}
}

// FolderKey turns a species name into its directory name and cache key.
// Whitespace runs become "_", lower-to-upper boundaries are split with "_",
// and the result is lowercased, so "Blue Tang", "BlueTang" and "blue_tang"
// all map to "blue_tang".
func FolderKey(name string) string {
	key := whitespaceRun.ReplaceAllString(name, "_")
	key = camelBoundary.ReplaceAllString(key, "${1}_${2}")
	return strings.ToLower(key)
}

func (s Species) String() string {
	return s.Name
}
