/*
Copyright 2021 The Kubecc Authors.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package bench

import (
	"sort"
	"time"

	"github.com/cloudflare/golibs/ewma"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"
)

// Sample is one timed operation. Y is the latency in milliseconds.
type Sample struct {
	X time.Time
	Y float64
}

type Samples []Sample

func SortByTime(s Samples) {
	sort.Slice(s, func(i, j int) bool {
		return s[i].X.Before(s[j].X)
	})
}

func (s Samples) Values() []float64 {
	values := make([]float64, len(s))
	for i, v := range s {
		values[i] = v.Y
	}
	return values
}

// EWMA smooths the latency series.
func (s Samples) EWMA(halfLife time.Duration) (samples Samples) {
	samples = make(Samples, len(s))
	avg := ewma.NewEwma(halfLife)
	if len(s) > 0 {
		// The first Update only records the timestamp.
		avg.Update(s[0].Y, s[0].X)
		avg.Current = s[0].Y
	}
	for i, sample := range s {
		avg.Update(sample.Y, sample.X)
		samples[i] = Sample{
			X: sample.X,
			Y: avg.Current,
		}
	}
	return
}

// ToXYs converts samples to plot points, with X in milliseconds since the
// first sample.
func (s Samples) ToXYs() (xys plotter.XYs) {
	if len(s) == 0 {
		return
	}
	startTime := s[0].X
	xys = make(plotter.XYs, len(s))
	for i, v := range s {
		xys[i] = plotter.XY{
			X: float64(v.X.Sub(startTime).Microseconds()) / 1e3,
			Y: v.Y,
		}
	}
	return
}

// Summary holds latency statistics in milliseconds.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	P50    float64
	P99    float64
}

func (s Samples) Summarize() Summary {
	if len(s) == 0 {
		return Summary{}
	}
	values := s.Values()
	sort.Float64s(values)
	summary := Summary{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		P50:   stat.Quantile(0.5, stat.Empirical, values, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, values, nil),
	}
	if len(values) > 1 {
		summary.StdDev = stat.StdDev(values, nil)
	}
	return summary
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
