// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the analyzer. Exposed by the CLI's --metrics-addr
// endpoint.
var (
	filesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurograph_files_parsed_total",
		Help: "Number of source files successfully parsed.",
	})

	parseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurograph_parse_errors_total",
		Help: "Number of source files that failed to read or parse.",
	})

	relationshipsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurograph_relationships_total",
		Help: "Number of relationship edges produced by the linker pass.",
	})
)
