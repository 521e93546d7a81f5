// Package errors provides structured error types for better observability
// and programmatic error handling across nodekit.
//
// Every failure in the pull and kubelet-config pipelines is reported as a
// StructuredError whose Code identifies the failure class (NETWORK,
// MANIFEST_PARSE, FILESYSTEM, ARCHIVE_WRITE, MISSING_OVERRIDE, ...).
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeNetwork,
//	    "failed to fetch layer blob",
//	    cause,
//	    map[string]any{
//	        "blobSum": layer.BlobSum.String(),
//	        "layer":   layer.ID,
//	    },
//	)
//
//	if errors.HasCode(err, errors.ErrCodeNetwork) {
//	    // registry unreachable
//	}
package errors
