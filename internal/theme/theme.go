// Package theme resolves external theme names to the kiosk's named color
// themes.
package theme

import "strings"

// RGB is a display color as red, green, blue components.
type RGB [3]uint8

// Theme is one named color theme.
type Theme struct {
	Name       string `json:"name"`
	Background RGB    `json:"background_color"`
	Text       RGB    `json:"text_color"`
	Accent     RGB    `json:"accent_color"`
}

// DefaultName is the canonical identifier of the baseline theme.
const DefaultName = "Dark"

// Default returns the baseline dark theme used when no other theme applies.
func Default() Theme {
	return Theme{
		Name:       DefaultName,
		Background: RGB{40, 44, 52},
		Text:       RGB{220, 223, 228},
		Accent:     RGB{255, 180, 100},
	}
}

// Catalog returns the built-in themes in selector order.
func Catalog() []Theme {
	return []Theme{
		{Name: "Light", Background: RGB{240, 240, 245}, Text: RGB{60, 60, 70}, Accent: RGB{100, 100, 180}},
		Default(),
		{Name: "Solarized", Background: RGB{0, 43, 54}, Text: RGB{131, 148, 150}, Accent: RGB{181, 137, 0}},
		{Name: "After Dark", Background: RGB{32, 29, 101}, Text: RGB{172, 171, 213}, Accent: RGB{254, 243, 199}},
		{Name: "Her", Background: RGB{101, 29, 29}, Text: RGB{213, 171, 171}, Accent: RGB{254, 243, 199}},
		{Name: "Forest", Background: RGB{5, 46, 22}, Text: RGB{134, 239, 172}, Accent: RGB{254, 243, 199}},
		{Name: "Sky", Background: RGB{8, 47, 73}, Text: RGB{125, 211, 252}, Accent: RGB{254, 243, 199}},
		{Name: "Clays", Background: RGB{69, 26, 3}, Text: RGB{245, 158, 11}, Accent: RGB{254, 243, 199}},
		{Name: "Stones", Background: RGB{41, 37, 36}, Text: RGB{156, 163, 175}, Accent: RGB{254, 243, 199}},
	}
}

// Lookup finds a theme by its canonical name, falling back to the default
// theme when the name is not in the catalog.
func Lookup(name string) Theme {
	for _, t := range Catalog() {
		if t.Name == name {
			return t
		}
	}
	return Default()
}

// aliases maps lowercased external theme names to canonical identifiers.
// Several remote naming schemes use -soft / -dimmed variants; the kiosk
// collapses them onto its two base palettes.
var aliases = map[string]string{
	"light":       "Light",
	"light-soft":  "Light",
	"dark":        "Dark",
	"dark-soft":   "Dark",
	"dark-dimmed": "Dark",
	"after-dark":  "After Dark",
	"her":         "Her",
	"forest":      "Forest",
	"sky":         "Sky",
	"clays":       "Clays",
	"stones":      "Stones",
	"solarized":   "Solarized",
}

// Resolve normalizes an external theme name to its canonical identifier.
// Matching is case-insensitive. Unknown names resolve to ("", false) and
// must not change the current theme.
func Resolve(name string) (string, bool) {
	canonical, ok := aliases[strings.ToLower(name)]
	return canonical, ok
}
