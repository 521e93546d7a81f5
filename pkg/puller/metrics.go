// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package puller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors for one pull run. Each run gets its own
// registry so a textfile only ever describes that run.
type metrics struct {
	registry *prometheus.Registry

	layersStaged  prometheus.Counter
	bytesStaged   prometheus.Counter
	archiveBytes  prometheus.Gauge
	duration      *prometheus.HistogramVec
	failures      *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		layersStaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_pull_layers_staged_total",
			Help: "Total number of image layers staged",
		}),
		bytesStaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "nodekit_pull_layer_bytes_total",
			Help: "Total number of layer blob bytes downloaded",
		}),
		archiveBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodekit_pull_archive_content_bytes",
			Help: "Sum of entry sizes in the last written archive",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodekit_pull_phase_duration_seconds",
			Help:    "Duration of each pull phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"phase"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodekit_pull_failures_total",
			Help: "Total number of failed pull runs by error code",
		}, []string{"code"}),
		lastSuccessTS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodekit_pull_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pull",
		}),
	}
}

// writeTextfile writes the run's metrics in text exposition format, in the
// shape expected by the node exporter textfile collector.
func (m *metrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
