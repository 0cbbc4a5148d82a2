package loader

// DefaultScrollThreshold is how close (in pixels) to the bottom of the
// document a reader must scroll before the next page is requested.
const DefaultScrollThreshold = 1000

// Viewport is the scroll position reported by the browser.
type Viewport struct {
	InnerHeight    float64 `json:"innerHeight"`
	ScrollY        float64 `json:"scrollY"`
	DocumentHeight float64 `json:"documentHeight"`
}

func (v Viewport) NearBottom(threshold float64) bool {
	return v.InnerHeight+v.ScrollY >= v.DocumentHeight-threshold
}
