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
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/cns-nodekit/pkg/archive"
	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
	"github.com/NVIDIA/cns-nodekit/pkg/registry"
)

// DefaultStagingDir is the staging directory used when none is configured.
const DefaultStagingDir = "tmp"

// ManifestFetcher fetches the manifest named by a client's coordinates.
type ManifestFetcher interface {
	registry.BlobFetcher
	FetchManifest(ctx context.Context) (*registry.Manifest, error)
}

// Config configures a pull run.
type Config struct {
	// StagingDir is destroyed and recreated at the start of every run.
	StagingDir string
	// OutPath is the tar archive to write.
	OutPath string
	// VerifyDigests checks each blob against its blobSum.
	VerifyDigests bool
	// MetricsFile, when set, receives the run's metrics in text format.
	MetricsFile string
}

// Result describes a completed pull.
type Result struct {
	RunID    string
	Layers   []registry.StagedLayer
	Archive  *archive.Result
	Duration time.Duration
}

// Puller runs fetch, stage and archive in sequence.
type Puller struct {
	fetcher ManifestFetcher
	cfg     Config
	metrics *metrics
}

// New returns a Puller reading from fetcher.
func New(fetcher ManifestFetcher, cfg Config) *Puller {
	if cfg.StagingDir == "" {
		cfg.StagingDir = DefaultStagingDir
	}
	return &Puller{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: newMetrics(),
	}
}

// Run executes the pull. Any failure aborts the run; staged content written
// before the failure is left on disk.
func (p *Puller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := slog.With("run_id", runID)

	res, err := p.run(ctx, log)
	if err != nil {
		code := apperrors.CodeOf(err)
		if code == "" {
			code = apperrors.ErrCodeInternal
		}
		p.metrics.failures.WithLabelValues(string(code)).Inc()
		log.Error("pull failed", "error", err, "code", code)
	} else {
		res.RunID = runID
		res.Duration = time.Since(start)
		p.metrics.lastSuccessTS.SetToCurrentTime()
		log.Info("pull complete",
			"layers", len(res.Layers),
			"archive", res.Archive.Path,
			"duration", res.Duration.String())
	}

	p.flushMetrics(log)
	return res, err
}

func (p *Puller) run(ctx context.Context, log *slog.Logger) (*Result, error) {
	if p.cfg.OutPath == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "output path is required")
	}

	phase := time.Now()
	m, err := p.fetcher.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	p.observe("manifest", phase)
	log.Debug("manifest parsed", "layers", len(m.FSLayers), "digest", m.Descriptor.Digest.String())

	if err := registry.PrepareStaging(p.cfg.StagingDir); err != nil {
		return nil, err
	}

	phase = time.Now()
	stager := registry.NewStager(p.cfg.StagingDir, p.fetcher,
		registry.WithVerifyDigests(p.cfg.VerifyDigests),
		registry.WithLayerObserver(func(l registry.StagedLayer) {
			p.metrics.layersStaged.Inc()
			p.metrics.bytesStaged.Add(float64(l.Size))
		}),
	)
	layers, err := stager.Stage(ctx, m)
	if err != nil {
		return nil, err
	}
	p.observe("stage", phase)

	phase = time.Now()
	ar, err := archive.Build(p.cfg.StagingDir, p.cfg.OutPath)
	if err != nil {
		return nil, err
	}
	p.observe("archive", phase)
	p.metrics.archiveBytes.Set(float64(ar.Bytes))

	return &Result{
		Layers:  layers,
		Archive: ar,
	}, nil
}

func (p *Puller) observe(phase string, start time.Time) {
	p.metrics.duration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (p *Puller) flushMetrics(log *slog.Logger) {
	if p.cfg.MetricsFile == "" {
		return
	}
	if err := p.metrics.writeTextfile(p.cfg.MetricsFile); err != nil {
		log.Warn("failed to write metrics file", "path", p.cfg.MetricsFile, "error", err)
	}
}
