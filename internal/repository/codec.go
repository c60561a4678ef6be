package repository

import "strings"

// Storage encodings for list-valued listing columns.  The separators match
// rows written by earlier deployments.
const (
	institutionSep = ", "
	imageSep       = ","
	amenitySep     = " • "
	defaultAmenity = "Standard Room"
)

func joinInstitutions(v []string) string { return strings.Join(compact(v), institutionSep) }
func joinImages(v []string) string { return strings.Join(compact(v), imageSep) }

func joinAmenities(v []string) string {
	v = compact(v)
	if len(v) == 0 {
		return defaultAmenity
	}
	return strings.Join(v, amenitySep)
}

func splitInstitutions(s string) []string { return splitTrim(s, ",") }
func splitImages(s string) []string { return splitTrim(s, imageSep) }
func splitAmenities(s string) []string { return splitTrim(s, "•") }

func splitTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return compact(strings.Split(s, sep))
}

// compact trims entries and drops empty ones, preserving order.
func compact(v []string) []string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
