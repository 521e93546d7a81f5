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
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opencontainers/go-digest"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// maxManifestBytes caps the manifest body read into memory.
const maxManifestBytes = 4 << 20

// Option configures a Client.
type Option func(*Client)

// WithInsecureTLS disables TLS certificate verification.
func WithInsecureTLS(insecure bool) Option {
	return func(c *Client) {
		c.insecureTLS = insecure
	}
}

// WithPlainHTTP talks to the registry over HTTP instead of HTTPS.
func WithPlainHTTP(plain bool) Option {
	return func(c *Client) {
		c.plainHTTP = plain
	}
}

// WithDockerCredentials enables credentials from the Docker config
// (~/.docker/config.json and credential helpers). Requests are anonymous otherwise.
func WithDockerCredentials(enabled bool) Option {
	return func(c *Client) {
		c.dockerCredentials = enabled
	}
}

// WithMaxRequestsPerSecond throttles registry requests. Zero means unlimited.
func WithMaxRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		c.maxRPS = rps
	}
}

// WithManifestTimeout overrides the per-request manifest timeout.
func WithManifestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.manifestTimeout = d
	}
}

// WithBlobTimeout overrides the per-blob download timeout.
func WithBlobTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.blobTimeout = d
	}
}

// Client fetches manifests and blobs of one repository.
type Client struct {
	coords            Coordinates
	repo              *remote.Repository
	insecureTLS       bool
	plainHTTP         bool
	dockerCredentials bool
	maxRPS            float64
	manifestTimeout   time.Duration
	blobTimeout       time.Duration
}

// NewClient validates the coordinates and prepares a repository client.
// No network traffic happens until a fetch is issued.
func NewClient(coords Coordinates, opts ...Option) (*Client, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		coords:          coords,
		manifestTimeout: defaults.RegistryManifestTimeout,
		blobTimeout:     defaults.RegistryBlobTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	repo, err := remote.NewRepository(coords.Name())
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"failed to initialize remote repository", err, map[string]any{"name": coords.Name()})
	}
	repo.PlainHTTP = c.plainHTTP
	repo.ManifestMediaTypes = ManifestMediaTypes
	repo.Client = c.authClient()

	c.repo = repo
	return c, nil
}

// Coordinates returns the coordinates the client was created for.
func (c *Client) Coordinates() Coordinates {
	return c.coords
}

func (c *Client) authClient() *auth.Client {
	header := http.Header{}
	header.Set("User-Agent", UserAgent)

	client := &auth.Client{
		Client: &http.Client{
			Transport: newThrottledTransport(newTransport(c.insecureTLS), c.maxRPS),
		},
		Header: header,
		Cache:  auth.NewCache(),
	}

	if c.dockerCredentials {
		credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			slog.Warn("docker credentials unavailable, using anonymous access", "error", err)
		} else {
			client.Credential = credentials.Credential(credStore)
		}
	}

	return client
}

// FetchManifest downloads and parses the manifest named by the client's coordinates.
func (c *Client) FetchManifest(ctx context.Context) (*Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, c.manifestTimeout)
	defer cancel()

	slog.Debug("fetching manifest", "reference", c.coords.String(), "path", c.coords.ManifestPath())

	desc, rc, err := c.repo.Manifests().FetchReference(ctx, c.coords.Digest)
	if err != nil {
		return nil, networkError("manifest request failed", err, map[string]any{
			"reference": c.coords.String(),
		})
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxManifestBytes+1))
	if err != nil {
		return nil, networkError("failed to read manifest body", err, map[string]any{
			"reference": c.coords.String(),
		})
	}
	if len(body) > maxManifestBytes {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeManifestParse,
			"manifest exceeds size limit", map[string]any{"limit": maxManifestBytes})
	}

	m, err := ParseManifest(body)
	if err != nil {
		return nil, err
	}
	m.Descriptor = desc

	slog.Info("manifest fetched",
		"reference", c.coords.String(),
		"mediaType", desc.MediaType,
		"digest", desc.Digest.String(),
		"layers", len(m.FSLayers))

	return m, nil
}

// FetchBlob opens the blob with the given digest. The caller must close the
// returned reader; the per-blob timeout stays in force until it is closed.
func (c *Client) FetchBlob(ctx context.Context, blobSum digest.Digest) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.blobTimeout)

	slog.Debug("fetching blob", "blobSum", blobSum.String(), "path", c.coords.BlobPath(blobSum.String()))

	_, rc, err := c.repo.Blobs().FetchReference(ctx, blobSum.String())
	if err != nil {
		cancel()
		return nil, networkError("blob request failed", err, map[string]any{
			"blobSum": blobSum.String(),
		})
	}

	return &cancelOnClose{ReadCloser: rc, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}

func networkError(msg string, err error, ctx map[string]any) error {
	return apperrors.WrapWithContext(apperrors.ErrCodeNetwork, msg, err, ctx)
}
