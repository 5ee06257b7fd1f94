package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Style holds every cosmetic choice of the summary layout. Renderer variants
// (banner colour, logo, wording) are different Style values, not code paths.
type Style struct {
	PageSize   string  `yaml:"pageSize"`
	FontFamily string  `yaml:"fontFamily"`
	Margins    Margins `yaml:"margins"`

	BodySize    float64 `yaml:"bodySize"`
	HeaderSize  float64 `yaml:"headerSize"`
	TitleSize   float64 `yaml:"titleSize"`
	ThemeSize   float64 `yaml:"themeSize"`
	FooterSize  float64 `yaml:"footerSize"`
	LineSpacing float64 `yaml:"lineSpacing"`

	IndentUnit   float64 `yaml:"indentUnit"`
	BannerHeight float64 `yaml:"bannerHeight"`
	QuestionGap  float64 `yaml:"questionGap"`
	ThemeGap     float64 `yaml:"themeGap"`
	// SafetyBuffer is the space a theme banner needs below it before the page
	// is considered full.
	SafetyBuffer float64 `yaml:"safetyBuffer"`
	// FooterOffset is the distance of the footer line from the page bottom.
	FooterOffset float64 `yaml:"footerOffset"`

	TextColor       string `yaml:"textColor"`
	MutedColor      string `yaml:"mutedColor"`
	BannerColor     string `yaml:"bannerColor"`
	BannerTextColor string `yaml:"bannerTextColor"`

	LogoPath  string  `yaml:"logoPath"`
	LogoWidth float64 `yaml:"logoWidth"`

	ProtectiveMarking    string   `yaml:"protectiveMarking"`
	Organisation         string   `yaml:"organisation"`
	ContactLines         []string `yaml:"contactLines"`
	Title                string   `yaml:"title"`
	Intro                string   `yaml:"intro"`
	ApplicationTypeLabel string   `yaml:"applicationTypeLabel"`
	DeclarationTitle     string   `yaml:"declarationTitle"`

	// Compress deflates page content streams; Optimize runs the finished file
	// through pdfcpu's optimizer.
	Compress bool `yaml:"compress"`
	Optimize bool `yaml:"optimize"`
}

// Margins are page margins in points.
type Margins struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// DefaultStyle is the CICA summary layout.
func DefaultStyle() Style {
	return Style{
		PageSize:   "A4",
		FontFamily: "Helvetica",
		Margins:    Margins{Top: 50, Right: 50, Bottom: 60, Left: 50},

		BodySize:    12.5,
		HeaderSize:  10,
		TitleSize:   25,
		ThemeSize:   17.5,
		FooterSize:  8,
		LineSpacing: 1.2,

		IndentUnit:   30,
		BannerHeight: 28,
		QuestionGap:  6,
		ThemeGap:     12,
		SafetyBuffer: 60,
		FooterOffset: 30,

		TextColor:       "#444444",
		MutedColor:      "#808080",
		BannerColor:     "#444444",
		BannerTextColor: "#FFFFFF",

		LogoWidth: 80,

		ProtectiveMarking: "Protect-Personal",
		Organisation:      "Criminal Injuries Compensation Authority",
		ContactLines: []string{
			"Tel: 0300 003 3601",
			"CICA, Alexander Bain House",
			"Atlantic Quay, 15 York Street",
			"Glasgow G2 8JQ",
			"www.cica.gov.uk",
		},
		Title: "CICA Summary Application Form",
		Intro: "This document provides a summary of the information supplied to CICA in your application form. " +
			"Please contact us on 0300 003 3601 if you require any changes to be made.",
		ApplicationTypeLabel: "Application type",
		DeclarationTitle:     "Consent and Declaration",

		Compress: true,
		Optimize: true,
	}
}

// LoadStyle reads a YAML style file. Fields absent from the file keep their
// DefaultStyle values.
func LoadStyle(path string) (Style, error) {
	style := DefaultStyle()
	if path == "" {
		return style, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, fmt.Errorf("failed to read style file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &style); err != nil {
		return Style{}, fmt.Errorf("failed to parse style file %s: %w", path, err)
	}
	if err := style.Validate(); err != nil {
		return Style{}, fmt.Errorf("invalid style file %s: %w", path, err)
	}
	return style, nil
}

// Validate checks the values a layout cannot work without.
func (s Style) Validate() error {
	if s.FontFamily == "" {
		return fmt.Errorf("fontFamily must be set")
	}
	if s.BodySize <= 0 || s.FooterSize <= 0 || s.ThemeSize <= 0 {
		return fmt.Errorf("font sizes must be positive")
	}
	if s.LineSpacing < 1 {
		return fmt.Errorf("lineSpacing must be at least 1, got %v", s.LineSpacing)
	}
	if s.FooterOffset <= 0 || s.FooterOffset >= s.Margins.Bottom {
		return fmt.Errorf("footerOffset must sit inside the bottom margin (0 < %v < %v)", s.FooterOffset, s.Margins.Bottom)
	}
	for name, c := range map[string]string{
		"textColor":       s.TextColor,
		"mutedColor":      s.MutedColor,
		"bannerColor":     s.BannerColor,
		"bannerTextColor": s.BannerTextColor,
	} {
		if _, err := parseColor(c); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

type rgb struct{ r, g, b int }

func parseColor(hex string) (rgb, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return rgb{}, fmt.Errorf("color %q is not #RRGGBB", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, fmt.Errorf("color %q is not #RRGGBB", hex)
	}
	return rgb{r: int(v >> 16 & 0xff), g: int(v >> 8 & 0xff), b: int(v & 0xff)}, nil
}

func mustColor(hex string) rgb {
	c, err := parseColor(hex)
	if err != nil {
		return rgb{}
	}
	return c
}
