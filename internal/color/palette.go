package color

// DefaultPalette tints log lanes by sequence slot.
var DefaultPalette = []string{
	"#FF8383", "#FFF574", "#A1D6CB", "#A19AD3", "#ca5a2e", "#FFF574", "#A1D6CB", "#A19AD3",
}

// Fixed scene colors.
var (
	Tile   = RGB{0.51, 0.54, 0.075}
	Player = RGB{0.8, 0.1, 0.1}
	Bird   = RGB{0.1, 0.0, 0.1}
	Sky    = RGB{0.5, 0.5, 0.9}
	Gold   = MustHex("#FFD700")
)

// ParsePalette converts hex strings, substituting black for malformed
// entries. The second result lists the rejected inputs.
func ParsePalette(hexes []string) ([]RGB, []string) {
	out := make([]RGB, 0, len(hexes))
	var bad []string
	for _, h := range hexes {
		c, err := ParseHex(h)
		if err != nil {
			bad = append(bad, h)
		}
		out = append(out, c)
	}
	return out, bad
}
