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

package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Files written into every staged layer directory.
const (
	LayerJSONFile    = "json"
	LayerVersionFile = "VERSION"
	LayerTarFile     = "layer.tar"

	// LayerVersion is the content of the VERSION file.
	LayerVersion = "1.0"

	// ChunkSize is the buffer size used while streaming blobs to disk.
	ChunkSize = 1024
)

// BlobFetcher opens layer blobs by digest.
type BlobFetcher interface {
	FetchBlob(ctx context.Context, blobSum digest.Digest) (io.ReadCloser, error)
}

// StagedLayer describes one layer directory written by the Stager.
type StagedLayer struct {
	ID      string
	BlobSum digest.Digest
	Dir     string
	Size    int64
}

// StagerOption configures a Stager.
type StagerOption func(*Stager)

// WithVerifyDigests checks every downloaded blob against its blobSum.
// Disabled by default.
func WithVerifyDigests(verify bool) StagerOption {
	return func(s *Stager) {
		s.verify = verify
	}
}

// WithLayerObserver registers a callback invoked after each staged layer.
func WithLayerObserver(fn func(StagedLayer)) StagerOption {
	return func(s *Stager) {
		s.observe = fn
	}
}

// Stager writes manifest layers into a staging directory using the legacy
// per-layer layout: <id>/json, <id>/VERSION, <id>/layer.tar.
type Stager struct {
	root    string
	fetcher BlobFetcher
	verify  bool
	observe func(StagedLayer)
}

// NewStager returns a Stager rooted at the given staging directory.
func NewStager(root string, fetcher BlobFetcher, opts ...StagerOption) *Stager {
	s := &Stager{
		root:    root,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the staging directory.
func (s *Stager) Root() string {
	return s.root
}

// PrepareStaging destroys any previous staging content and recreates an
// empty staging directory.
func PrepareStaging(root string) error {
	clean := filepath.Clean(root)
	if root == "" || clean == "." || clean == string(filepath.Separator) {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"refusing to use staging directory", map[string]any{"path": root})
	}

	if err := checkNotAncestor(clean); err != nil {
		return err
	}

	if err := os.RemoveAll(clean); err != nil {
		return fsError("failed to clear staging directory", err, clean)
	}
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return fsError("failed to create staging directory", err, clean)
	}
	return nil
}

// checkNotAncestor refuses staging roots that are the working directory or
// one of its parents, such as "..".
func checkNotAncestor(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fsError("failed to resolve staging directory", err, root)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fsError("failed to resolve working directory", err, root)
	}

	rel, err := filepath.Rel(abs, wd)
	if err == nil && (rel == "." || filepath.IsLocal(rel)) {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"staging directory contains the working directory", map[string]any{"path": root})
	}
	return nil
}

// Stage writes every layer of the manifest, in manifest order. The first
// failure aborts staging and leaves what was written so far in place.
func (s *Stager) Stage(ctx context.Context, m *Manifest) ([]StagedLayer, error) {
	layers := m.Layers()
	staged := make([]StagedLayer, 0, len(layers))

	for i, ref := range layers {
		if err := ctx.Err(); err != nil {
			return staged, apperrors.Wrap(apperrors.ErrCodeTimeout, "staging canceled", err)
		}

		layer, err := s.stageLayer(ctx, ref)
		if err != nil {
			return staged, err
		}

		slog.Info("layer staged",
			"index", i,
			"id", layer.ID,
			"blobSum", layer.BlobSum.String(),
			"bytes", layer.Size)

		if s.observe != nil {
			s.observe(*layer)
		}
		staged = append(staged, *layer)
	}

	return staged, nil
}

func (s *Stager) stageLayer(ctx context.Context, ref LayerRef) (*StagedLayer, error) {
	id, err := ref.ID()
	if err != nil {
		return nil, err
	}
	if err := ValidateLayerID(id); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fsError("failed to create layer directory", err, dir)
	}

	if err := writeFile(filepath.Join(dir, LayerJSONFile), []byte(ref.V1Compatibility)); err != nil {
		return nil, err
	}
	if err := writeFile(filepath.Join(dir, LayerVersionFile), []byte(LayerVersion)); err != nil {
		return nil, err
	}

	size, err := s.download(ctx, ref.BlobSum, filepath.Join(dir, LayerTarFile))
	if err != nil {
		return nil, err
	}

	return &StagedLayer{
		ID:      id,
		BlobSum: ref.BlobSum,
		Dir:     dir,
		Size:    size,
	}, nil
}

func (s *Stager) download(ctx context.Context, blobSum digest.Digest, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fsError("failed to create layer tar", err, path)
	}
	defer f.Close()

	rc, err := s.fetcher.FetchBlob(ctx, blobSum)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var dst io.Writer = f
	var verifier digest.Verifier
	if s.verify {
		verifier = blobSum.Verifier()
		dst = io.MultiWriter(f, verifier)
	}

	n, err := copyChunks(dst, rc)
	if err != nil {
		var werr *writeError
		if errors.As(err, &werr) {
			return n, fsError("failed to write layer tar", werr.err, path)
		}
		return n, networkError("failed to read blob body", err, map[string]any{"blobSum": blobSum.String()})
	}

	if err := f.Close(); err != nil {
		return n, fsError("failed to close layer tar", err, path)
	}

	if verifier != nil && !verifier.Verified() {
		return n, apperrors.NewWithContext(apperrors.ErrCodeDigestMismatch,
			"downloaded blob does not match its digest", map[string]any{
				"blobSum": blobSum.String(),
				"bytes":   n,
			})
	}

	return n, nil
}

type writeError struct {
	err error
}

func (e *writeError) Error() string { return e.err.Error() }

// copyChunks streams src to dst in ChunkSize pieces, skipping empty reads.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, &writeError{err: werr}
			}
			if w != n {
				return written, &writeError{err: io.ErrShortWrite}
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fsError("failed to write layer file", err, path)
	}
	return nil
}

func fsError(msg string, err error, path string) error {
	return apperrors.WrapWithContext(apperrors.ErrCodeFilesystem, msg, err, map[string]any{"path": path})
}
