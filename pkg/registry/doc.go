// Package registry fetches schema 1 image manifests and their layer blobs
// from a Docker Registry HTTP API v2 endpoint and stages them on disk in the
// legacy per-layer directory layout.
//
// # Overview
//
// Two pieces cooperate:
//   - Client: issues GET /v2/{repository}/{image}/manifests/{digest} and
//     GET /v2/{repository}/{image}/blobs/{blobSum} through an ORAS remote
//     repository (TLS verification on unless WithInsecureTLS is set).
//   - Stager: for each manifest entry writes {staging}/{id}/json,
//     {staging}/{id}/VERSION and {staging}/{id}/layer.tar.
//
// # Usage
//
//	client, err := registry.NewClient(registry.Coordinates{
//	    Registry:   "gcr.io",
//	    Repository: "google_containers",
//	    Image:      "pause",
//	    Digest:     "sha256:...",
//	})
//	if err != nil {
//	    return err
//	}
//
//	m, err := client.FetchManifest(ctx)
//	if err != nil {
//	    return err
//	}
//
//	if err := registry.PrepareStaging("tmp"); err != nil {
//	    return err
//	}
//	layers, err := registry.NewStager("tmp", client).Stage(ctx, m)
//
// # Layer Ids
//
// Layer ids are read from each history entry's v1Compatibility JSON and used
// verbatim as directory names. Ids that are empty, "." or "..", or that contain
// a path separator are rejected with MANIFEST_PARSE before anything is written.
//
// # Digest Verification
//
// Blobs are written as received. WithVerifyDigests(true) checks each blob
// against its blobSum after download and fails with DIGEST_MISMATCH.
//
// # Errors
//
// Transport failures, timeouts and non-2xx responses are NETWORK errors;
// malformed manifests are MANIFEST_PARSE; staging I/O failures are FILESYSTEM.
// Nothing is retried.
package registry
