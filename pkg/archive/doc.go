// Package archive serializes a staging directory into a single uncompressed
// tar stream.
//
// Every regular file below the staging root becomes one entry named by its
// path relative to that root, so a staged "tmp/<id>/layer.tar" is stored as
// "<id>/layer.tar". The tree is walked in lexical order and entries carry a
// fixed modification time, which makes the output byte-for-byte reproducible
// for identical staging content.
//
// Failures opening or finalizing the output are ARCHIVE_WRITE errors; failures
// reading staged files are FILESYSTEM errors.
package archive
