// Package export renders scenes and traces as standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/viz"
)

const background = "#0a0a0a"

var palette = []string{"#00d7ff", "#ff5fd7", "#ffd700", "#5fff5f", "#ff5f5f", "#5f87ff"}

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// CanvasToSVG draws every set dot of canvas as a circle, scale pixels apart.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	dw, dh := canvas.Dots()

	var sb strings.Builder
	header(&sb, float64(dw)*scale, float64(dh)*scale)
	sb.WriteString(`<g fill="#00ff00">` + "\n")
	r := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TraceToSVG plots channels of res against time on one shared y range, with
// a legend in the top left corner. An empty channel list plots every channel.
func TraceToSVG(res *sim.Result, channels []string, width, height int) (string, error) {
	if len(channels) == 0 {
		channels = res.Channels
	}
	if len(res.Times) < 2 {
		return "", fmt.Errorf("export: trace needs at least two samples, has %d", len(res.Times))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, ch := range channels {
		if !slices.Contains(res.Channels, ch) {
			return "", fmt.Errorf("export: unknown channel %q", ch)
		}
		for _, v := range res.Samples[ch] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.1
	lo, hi = lo-pad, hi+pad

	t0, t1 := res.Times[0], res.Times[len(res.Times)-1]
	w, h := float64(width), float64(height)
	px := func(t float64) float64 { return (t - t0) / (t1 - t0) * w }
	py := func(v float64) float64 { return h - (v-lo)/(hi-lo)*h }

	var sb strings.Builder
	header(&sb, w, h)
	if lo < 0 && hi > 0 {
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%.0f" y2="%.1f" stroke="#444" stroke-dasharray="4 4"/>`+"\n", py(0), w, py(0))
	}

	for i, ch := range channels {
		color := palette[i%len(palette)]
		samples := res.Samples[ch]
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, color)
		for k, v := range samples {
			if k >= len(res.Times) {
				break
			}
			cmd := " L"
			if k == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, px(res.Times[k]), py(v))
		}
		sb.WriteString(`"/>` + "\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>`+"\n", 16+14*i, color, ch)
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}
