package loader

import "testing"

func TestViewportNearBottom(t *testing.T) {
	tests := []struct {
		name     string
		viewport Viewport
		want     bool
	}{
		{"top of long page", Viewport{InnerHeight: 800, ScrollY: 0, DocumentHeight: 5000}, false},
		{"exactly at threshold", Viewport{InnerHeight: 800, ScrollY: 3200, DocumentHeight: 5000}, true},
		{"one pixel short", Viewport{InnerHeight: 800, ScrollY: 3199, DocumentHeight: 5000}, false},
		{"short page", Viewport{InnerHeight: 800, ScrollY: 0, DocumentHeight: 600}, true},
		{"bottom", Viewport{InnerHeight: 800, ScrollY: 4200, DocumentHeight: 5000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.viewport.NearBottom(DefaultScrollThreshold); got != tt.want {
				t.Errorf("Expected NearBottom %v, got %v", tt.want, got)
			}
		})
	}
}
