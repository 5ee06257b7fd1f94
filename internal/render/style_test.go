package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStyleIsValid(t *testing.T) {
	require.NoError(t, DefaultStyle().Validate())
}

func TestLoadStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bannerColor: "#1D70B8"
title: Summary of your application
margins:
  top: 40
  right: 40
  bottom: 70
  left: 40
`), 0o600))

	style, err := LoadStyle(path)
	require.NoError(t, err)
	assert.Equal(t, "#1D70B8", style.BannerColor)
	assert.Equal(t, "Summary of your application", style.Title)
	assert.Equal(t, 70.0, style.Margins.Bottom)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultStyle().BodySize, style.BodySize)
	assert.Equal(t, DefaultStyle().ContactLines, style.ContactLines)
}

func TestLoadStyleEmptyPath(t *testing.T) {
	style, err := LoadStyle("")
	require.NoError(t, err)
	assert.Equal(t, DefaultStyle(), style)
}

func TestLoadStyleRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`bannerColor: blue`), 0o600))
	_, err := LoadStyle(path)
	assert.ErrorContains(t, err, "bannerColor")

	require.NoError(t, os.WriteFile(path, []byte(`footerOffset: 500`), 0o600))
	_, err = LoadStyle(path)
	assert.ErrorContains(t, err, "footerOffset")
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("#1D70B8")
	require.NoError(t, err)
	assert.Equal(t, rgb{r: 0x1d, g: 0x70, b: 0xb8}, c)

	_, err = parseColor("#12345")
	assert.Error(t, err)
}
