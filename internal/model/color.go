package model

// Color is the card color of a note.
type Color string

// ColorDefault is used for notes without one of the palette colors.
const ColorDefault Color = "white"

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorZinc   Color = "zinc"
	ColorYellow Color = "yellow"
)

// Palette lists the selectable colors in display order.
var Palette = []Color{ColorRed, ColorBlue, ColorGreen, ColorZinc, ColorYellow}

// ParseColor normalizes s to a palette color, or ColorDefault when s is not one.
func ParseColor(s string) Color {
	for _, c := range Palette {
		if string(c) == s {
			return c
		}
	}
	return ColorDefault
}

// Valid reports whether c is a palette color or the default.
func (c Color) Valid() bool {
	return c == ColorDefault || ParseColor(string(c)) == c
}
