package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"hero", "/x/y.png", "hero"},
		{"../../etc/passwd", "/x/y.png", "etc_passwd"},
		{"Sir Lancelot", "/x/y.png", "Sir_Lancelot"},
		{"", "/scans/dragon knight.jpg", "dragon_knight"},
		{"  ", "/scans/.png", "character"},
		{"a/b\\c", "", "a_b_c"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.name, tt.input), tt.name)
	}
}

func TestNamer_Assign(t *testing.T) {
	names := NewNamer().Assign([]string{
		"/in/a.jpg",
		"/in/a.png",
		"/in/hero drawing.png",
		"/in/hero_drawing.png",
		"/in/Solo.png",
		"/in/solo.BMP",
		"/in/unique.png",
	})

	assert.Equal(t, []string{
		"a_jpg",
		"a_png",
		"hero_drawing_png",
		"hero_drawing_png_2",
		"Solo_png",
		"solo_bmp",
		"unique",
	}, names)
}

func TestNamer_NameIsStablePerPath(t *testing.T) {
	n := NewNamer()

	assert.Equal(t, "knight", n.Name("/in/knight.png"))
	assert.Equal(t, "knight_jpg", n.Name("/in/knight.jpg"))
	assert.Equal(t, "knight", n.Name("/in/knight.png"), "rewriting a file reuses its name")
	assert.Equal(t, "knight_jpg_2", n.Name("/other/knight.jpg"))
	assert.Equal(t, "KNIGHT_png", n.Name("/in/KNIGHT.png"), "names differing only in case clash")
}
