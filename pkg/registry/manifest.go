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
	"encoding/json"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Docker image manifest v2, schema 1 media types.
const (
	MediaTypeManifestV1       = "application/vnd.docker.distribution.manifest.v1+json"
	MediaTypeSignedManifestV1 = "application/vnd.docker.distribution.manifest.v1+prettyjws"
)

// ManifestMediaTypes are sent in the Accept header of manifest requests.
var ManifestMediaTypes = []string{
	MediaTypeSignedManifestV1,
	MediaTypeManifestV1,
	"application/json",
}

// FSLayer references one layer blob by content digest.
type FSLayer struct {
	BlobSum digest.Digest `json:"blobSum"`
}

// History carries the v1-compatible image JSON for one layer.
type History struct {
	V1Compatibility string `json:"v1Compatibility"`
}

// Manifest is a schema 1 image manifest. FSLayers and History are parallel:
// index i in one describes the same layer as index i in the other.
type Manifest struct {
	SchemaVersion int       `json:"schemaVersion"`
	Name          string    `json:"name,omitempty"`
	Tag           string    `json:"tag,omitempty"`
	Architecture  string    `json:"architecture,omitempty"`
	FSLayers      []FSLayer `json:"fsLayers"`
	History       []History `json:"history"`

	// Descriptor is the registry's description of the manifest itself. It is
	// populated by Client.FetchManifest and is empty for parsed local data.
	Descriptor ocispec.Descriptor `json:"-"`
}

// LayerRef pairs a blob digest with its raw v1Compatibility JSON.
type LayerRef struct {
	BlobSum         digest.Digest
	V1Compatibility string
}

// v1Image is the subset of the v1Compatibility document this package reads.
type v1Image struct {
	ID string `json:"id"`
}

// ID decodes the v1Compatibility JSON and returns its "id" field.
func (l LayerRef) ID() (string, error) {
	var img v1Image
	if err := json.Unmarshal([]byte(l.V1Compatibility), &img); err != nil {
		return "", apperrors.WrapWithContext(apperrors.ErrCodeManifestParse,
			"invalid v1Compatibility JSON", err, map[string]any{"blobSum": l.BlobSum.String()})
	}
	return img.ID, nil
}

// ParseManifest decodes a manifest body and checks that fsLayers and history
// are present, parallel, and reference well-formed digests.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw struct {
		Manifest
		FSLayers *[]FSLayer `json:"fsLayers"`
		History  *[]History `json:"history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeManifestParse, "manifest is not valid JSON", err)
	}

	if raw.FSLayers == nil || raw.History == nil {
		return nil, apperrors.New(apperrors.ErrCodeManifestParse, "manifest is missing fsLayers or history")
	}

	m := raw.Manifest
	m.FSLayers = *raw.FSLayers
	m.History = *raw.History

	if len(m.FSLayers) != len(m.History) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeManifestParse,
			"manifest fsLayers and history differ in length", map[string]any{
				"fsLayers": len(m.FSLayers),
				"history":  len(m.History),
			})
	}

	for i, l := range m.FSLayers {
		if err := l.BlobSum.Validate(); err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeManifestParse,
				"invalid blobSum", err, map[string]any{"index": i, "blobSum": string(l.BlobSum)})
		}
	}

	return &m, nil
}

// Layers returns the manifest entries as LayerRefs in manifest order.
func (m *Manifest) Layers() []LayerRef {
	refs := make([]LayerRef, len(m.FSLayers))
	for i := range m.FSLayers {
		refs[i] = LayerRef{
			BlobSum:         m.FSLayers[i].BlobSum,
			V1Compatibility: m.History[i].V1Compatibility,
		}
	}
	return refs
}

// ValidateLayerID rejects ids that are unsafe as a single path component.
// Layer ids come from remote JSON and name staging directories.
func ValidateLayerID(id string) error {
	switch {
	case id == "":
		return apperrors.New(apperrors.ErrCodeManifestParse, "layer id is empty")
	case id == "." || id == "..":
		return apperrors.NewWithContext(apperrors.ErrCodeManifestParse,
			"layer id is a relative path element", map[string]any{"id": id})
	case strings.ContainsAny(id, "/\\\x00"):
		return apperrors.NewWithContext(apperrors.ErrCodeManifestParse,
			"layer id contains a path separator", map[string]any{"id": id})
	}
	return nil
}
