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
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot renders a bar chart of mean latency per result. The image format is
// chosen from the file extension.
func Plot(results []Result, file string) error {
	p := plot.New()
	p.Title.Text = "Mean latency"
	p.Y.Label.Text = "Latency (ms)"

	values := make(plotter.Values, len(results))
	names := make([]string, len(results))
	for i, r := range results {
		values[i] = r.Summary().Mean
		names[i] = r.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.WithMessage(err, "could not create bar chart")
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)
	if err := p.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
		return errors.WithMessage(err, "could not save plot")
	}
	return nil
}

// PlotSeries renders the EWMA-smoothed latency of every result over time.
func PlotSeries(results []Result, halfLife time.Duration, file string) error {
	p := plot.New()
	p.Title.Text = "Latency (EWMA)"
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Latency (ms)"
	p.Legend.Top = true

	lines := make([]interface{}, 0, 2*len(results))
	for _, r := range results {
		if len(r.Samples) == 0 {
			continue
		}
		lines = append(lines, r.Name, r.Samples.EWMA(halfLife).ToXYs())
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.WithMessage(err, "could not add lines")
	}
	if err := p.Save(16*vg.Inch, 8*vg.Inch, file); err != nil {
		return errors.WithMessage(err, "could not save plot")
	}
	return nil
}
