package manager

import (
	"sort"
	"strings"
)

// sortFold sorts names case-insensitively.
func sortFold(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
}

// SortPackages sorts packages case-insensitively by name.
func SortPackages(pkgs []PackageInfo) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
	})
}
