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

package types

import (
	"github.com/kubecc-io/linesearch/internal/zapls"
)

// Component identifies which part of linesearch a process or logger
// belongs to.
type Component int

const (
	Unknown Component = iota
	Server
	Client
	CLI
	Bench
	TestComponent
)

// Name returns the title-case component name.
func (c Component) Name() string {
	switch c {
	case Server:
		return "Server"
	case Client:
		return "Client"
	case CLI:
		return "CLI"
	case Bench:
		return "Bench"
	case TestComponent:
		return "Test"
	}
	return "Unknown"
}

func (c Component) String() string {
	return c.Name()
}

// ShortName returns a lowercase, truncated name suitable for logging.
func (c Component) ShortName() string {
	switch c {
	case Server:
		return "srv"
	case Client:
		return "clnt"
	case CLI:
		return "cli"
	case Bench:
		return "bench"
	case TestComponent:
		return "testc"
	default:
	}
	return "<unk>"
}

// Color returns a color for the component, suitable for logging.
func (c Component) Color() zapls.Color {
	switch c {
	case Server:
		return zapls.Green
	case Client:
		return zapls.Magenta
	case CLI:
		return zapls.Blue
	case Bench:
		return zapls.Yellow
	case TestComponent:
		return zapls.White
	}
	return zapls.NoColor
}
