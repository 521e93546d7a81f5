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
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Coordinates identify a single image manifest in a registry.
type Coordinates struct {
	// Registry is the registry host, optionally with port (e.g., "gcr.io", "localhost:5000").
	Registry string
	// Repository is the path segment in front of the image name (e.g., "google_containers").
	Repository string
	// Image is the image name (e.g., "pause").
	Image string
	// Digest is the manifest reference, either a tag or a content digest.
	Digest string
}

// RepositoryPath returns "{repository}/{image}", the path used in /v2/ URLs.
func (c Coordinates) RepositoryPath() string {
	return strings.Trim(c.Repository, "/") + "/" + c.Image
}

// Name returns the fully qualified repository name without reference.
func (c Coordinates) Name() string {
	return stripProtocol(c.Registry) + "/" + c.RepositoryPath()
}

// String returns the reference in "registry/repository/image@digest" form
// for digests and "registry/repository/image:tag" form for tags.
func (c Coordinates) String() string {
	if strings.Contains(c.Digest, ":") {
		return c.Name() + "@" + c.Digest
	}
	return c.Name() + ":" + c.Digest
}

// ManifestPath returns the registry API path of the manifest.
func (c Coordinates) ManifestPath() string {
	return fmt.Sprintf("/v2/%s/manifests/%s", c.RepositoryPath(), c.Digest)
}

// BlobPath returns the registry API path of a blob in this repository.
func (c Coordinates) BlobPath(blobSum string) string {
	return fmt.Sprintf("/v2/%s/blobs/%s", c.RepositoryPath(), blobSum)
}

// Validate checks that all coordinates are present and form a valid
// repository name.
func (c Coordinates) Validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.Registry) == "" {
		missing = append(missing, "registry")
	}
	if strings.TrimSpace(c.Repository) == "" {
		missing = append(missing, "repository")
	}
	if strings.TrimSpace(c.Image) == "" {
		missing = append(missing, "image")
	}
	if strings.TrimSpace(c.Digest) == "" {
		missing = append(missing, "digest")
	}
	if len(missing) > 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"missing image coordinates", map[string]any{"missing": missing})
	}

	if _, err := reference.ParseNamed(c.Name()); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid repository name", err, map[string]any{"name": c.Name()})
	}
	return nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return strings.TrimSuffix(registry, "/")
}
