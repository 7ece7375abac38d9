package viz

import (
	"fmt"
	"slices"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/grapple/internal/sim"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

type PlotOptions struct {
	Width, Height int
	Caption       string
}

// Plot charts the named channels of res together. An empty channel list
// plots every channel.
func Plot(res *sim.Result, channels []string, opts PlotOptions) (string, error) {
	if len(channels) == 0 {
		channels = res.Channels
	}
	if len(channels) == 0 {
		return "", fmt.Errorf("viz: result has no channels")
	}

	series := make([][]float64, 0, len(channels))
	for _, ch := range channels {
		if !slices.Contains(res.Channels, ch) {
			return "", fmt.Errorf("viz: unknown channel %q (have %v)", ch, res.Channels)
		}
		data := res.Samples[ch]
		if len(data) == 0 {
			return "", fmt.Errorf("viz: channel %q is empty", ch)
		}
		series = append(series, data)
	}

	colors := make([]asciigraph.AnsiColor, len(channels))
	for i := range colors {
		colors[i] = seriesColors[i%len(seriesColors)]
	}

	graphOpts := []asciigraph.Option{
		asciigraph.Height(max(opts.Height, 4)),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(channels...),
	}
	if opts.Width > 0 {
		graphOpts = append(graphOpts, asciigraph.Width(opts.Width))
	}
	if opts.Caption != "" {
		graphOpts = append(graphOpts, asciigraph.Caption(opts.Caption))
	}
	return asciigraph.PlotMany(series, graphOpts...), nil
}
