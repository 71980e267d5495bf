package evidence

import (
	"persondiscovery/internal/config"
	"persondiscovery/internal/store"
)

// ReviewWindow pads a shot segment for human review. Audio claims get the
// wide audio padding so the reviewer hears the whole utterance, every other
// source gets the visual padding. The start never goes below zero.
func ReviewWindow(cfg config.Evidence, source string, segment store.Segment) (float64, float64) {
	pad := cfg.VisualPadding
	if source == cfg.AudioSource {
		pad = cfg.AudioPadding
	}
	return max(segment.Start-pad, 0), segment.End + pad
}
