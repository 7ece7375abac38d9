package analysis

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/grapple/internal/sim"
)

type Summary struct {
	Channel string
	Min     float64
	Max     float64
	Mean    float64
	Final   float64
	// SettleTime is when the channel last entered the tolerance band around
	// its final value. It is the last sample time if it never settled.
	SettleTime float64
	// Frequency is the dominant oscillation in Hz.
	Frequency float64
}

func channel(res *sim.Result, name string) ([]float64, error) {
	if !slices.Contains(res.Channels, name) {
		return nil, fmt.Errorf("analysis: unknown channel %q", name)
	}
	data := res.Samples[name]
	if len(data) == 0 || len(data) != len(res.Times) {
		return nil, fmt.Errorf("analysis: channel %q has %d samples for %d times", name, len(data), len(res.Times))
	}
	return data, nil
}

// Summarize describes one channel of res. tol is the settle band.
func Summarize(res *sim.Result, name string, tol float64) (Summary, error) {
	data, err := channel(res, name)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Channel: name,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
		Final:   data[len(data)-1],
	}
	for _, v := range data {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.Mean += v
	}
	s.Mean /= float64(len(data))

	settled := 0
	for i := len(data) - 1; i >= 0; i-- {
		if math.Abs(data[i]-s.Final) > tol {
			settled = i + 1
			break
		}
	}
	s.SettleTime = res.Times[min(settled, len(data)-1)]

	if len(res.Times) > 1 {
		sampleDt := (res.Times[len(res.Times)-1] - res.Times[0]) / float64(len(res.Times)-1)
		s.Frequency, _ = DominantFrequency(data, sampleDt)
	}
	return s, nil
}

// SummarizeAll describes every channel of res in recording order.
func SummarizeAll(res *sim.Result, tol float64) ([]Summary, error) {
	out := make([]Summary, 0, len(res.Channels))
	for _, name := range res.Channels {
		s, err := Summarize(res, name, tol)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
