package cli

import (
	"fmt"
	"strings"

	"mcbedrock-downloader/catalog"
)

// invalidFileNameChars are rejected by at least one common filesystem
const invalidFileNameChars = `<>:"/\|?*`

// DefaultFileName is the package file name used when no output path is given
func DefaultFileName(v catalog.Version) string {
	name := SanitizeFileName(v.Name)
	if v.Type == catalog.TypePreview {
		return fmt.Sprintf("Minecraft-Preview-%s.appx", name)
	}
	return fmt.Sprintf("Minecraft-%s.appx", name)
}

// SanitizeFileName replaces characters that cannot appear in a file name
func SanitizeFileName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(invalidFileNameChars, r) {
			return '_'
		}
		return r
	}, name)

	sanitized = strings.Trim(sanitized, " .")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
