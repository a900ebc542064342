package ui

//go:generate templ generate

// IndexData configures the live page
type IndexData struct {
	Title      string
	StreamURL  string
	PointsURL  string
	StatusURL  string
	View       View
	PaletteLen int
}

// pageConfig is embedded in the page as JSON and read by the page script
type pageConfig struct {
	Stream  string   `json:"stream"`
	Points  string   `json:"points"`
	Status  string   `json:"status"`
	Yaw     float64  `json:"yaw"`
	Pitch   float64  `json:"pitch"`
	Palette []string `json:"palette"`
}

func configFor(data IndexData) pageConfig {
	return pageConfig{
		Stream:  data.StreamURL,
		Points:  data.PointsURL,
		Status:  data.StatusURL,
		Yaw:     data.View.Yaw,
		Pitch:   data.View.Pitch,
		Palette: HexPalette(data.PaletteLen),
	}
}
