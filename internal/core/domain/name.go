package domain

import "strings"

// NormalizeName strips a single trailing dot and lowercases a DNS name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// ToRelative converts a fully qualified record name into its zone-relative
// form. The zone apex becomes "@".
func ToRelative(full, zone string) string {
	full = NormalizeName(full)
	zone = NormalizeName(zone)
	if full == zone {
		return "@"
	}
	if strings.HasSuffix(full, "."+zone) {
		return strings.TrimSuffix(full, "."+zone)
	}
	return full
}

// ToFull converts a zone-relative record name back into its fully qualified
// form without trailing dot.
func ToFull(relative, zone string) string {
	zone = NormalizeName(zone)
	relative = NormalizeName(relative)
	if relative == "@" || relative == "" {
		return zone
	}
	if relative == zone || strings.HasSuffix(relative, "."+zone) {
		return relative
	}
	return relative + "." + zone
}
