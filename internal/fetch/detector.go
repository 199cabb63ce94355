package fetch

import (
	"bytes"
	"strings"
)

// Detector decides whether a plain-HTTP response needs browser rendering.
type Detector struct {
	minHTMLBytes int
	markers      [][]byte
}

// defaultChallengeMarkers are phrases bot-mitigation interstitials show in
// place of real content.
var defaultChallengeMarkers = []string{
	"just a moment",
	"access denied",
	"verify you are human",
	"captcha",
	"enable javascript and cookies",
	"checking your browser",
}

// NewDetector builds a detector with the given body-size floor and challenge
// markers. Empty markers fall back to the defaults.
func NewDetector(minBytes int, markers []string) *Detector {
	if len(markers) == 0 {
		markers = defaultChallengeMarkers
	}
	lowered := make([][]byte, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(strings.ToLower(m))
		if m != "" {
			lowered = append(lowered, []byte(m))
		}
	}
	return &Detector{minHTMLBytes: minBytes, markers: lowered}
}

// NewDefaultDetector uses the default thresholds.
func NewDefaultDetector() *Detector {
	return NewDetector(500, nil)
}

// NeedsRender reports whether the body looks JS-gated: implausibly short, or
// carrying a bot-challenge marker.
func (d *Detector) NeedsRender(body []byte) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	return d.containsMarker(body)
}

func (d *Detector) containsMarker(body []byte) bool {
	if len(body) == 0 || len(d.markers) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, m := range d.markers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}
