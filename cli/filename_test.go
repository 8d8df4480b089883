package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcbedrock-downloader/catalog"
)

func TestDefaultFileName(t *testing.T) {
	tests := []struct {
		version catalog.Version
		want    string
	}{
		{catalog.Version{Name: "1.20.0.1", Type: catalog.TypeRelease}, "Minecraft-1.20.0.1.appx"},
		{catalog.Version{Name: "1.20.10.20", Type: catalog.TypeBeta}, "Minecraft-1.20.10.20.appx"},
		{catalog.Version{Name: "1.21.0.20", Type: catalog.TypePreview}, "Minecraft-Preview-1.21.0.20.appx"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultFileName(tt.version))
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"1.20.0.1":       "1.20.0.1",
		"a/b\\c":         "a_b_c",
		`x:y*z?"<>|`:     "x_y_z_____",
		"  ..  ":         "unknown",
		"tab\tname":      "tab_name",
		"trailing dot. ": "trailing dot",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}
