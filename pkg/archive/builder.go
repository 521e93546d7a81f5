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

package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/NVIDIA/cns-nodekit/pkg/errors"
)

// Result summarizes a written archive.
type Result struct {
	// Path is the archive location.
	Path string
	// Entries are the entry names in write order.
	Entries []string
	// Bytes is the sum of all entry content sizes.
	Bytes int64
}

// Build writes every regular file under stagingRoot into an uncompressed tar
// archive at outPath. Entry names are paths relative to stagingRoot, walked in
// lexical order, so the same tree always yields the same entry order.
func Build(stagingRoot, outPath string) (*Result, error) {
	if outPath == "" {
		return nil, apperrors.New(apperrors.ErrCodeArchiveWrite, "output path is required")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeArchiveWrite,
			"failed to open archive for write", err, map[string]any{"path": outPath})
	}

	res, err := write(out, stagingRoot)
	closeErr := out.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeArchiveWrite,
			"failed to close archive", closeErr, map[string]any{"path": outPath})
	}

	res.Path = outPath
	slog.Info("archive written", "path", outPath, "entries", len(res.Entries), "bytes", res.Bytes)
	return res, nil
}

// Write streams the staging tree as a tar archive to w. The tar stream is
// closed exactly once; w itself is left open.
func Write(w io.Writer, stagingRoot string) (*Result, error) {
	return write(w, stagingRoot)
}

func write(w io.Writer, stagingRoot string) (*Result, error) {
	tw := tar.NewWriter(w)
	res := &Result{}

	walkErr := filepath.WalkDir(stagingRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fsError("failed to walk staging directory", err, path)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(stagingRoot, path)
		if err != nil {
			return fsError("failed to compute entry name", err, path)
		}
		name := filepath.ToSlash(rel)

		n, err := addFile(tw, path, name)
		if err != nil {
			return err
		}

		res.Entries = append(res.Entries, name)
		res.Bytes += n
		return nil
	})

	closeErr := tw.Close()
	if walkErr != nil {
		return nil, walkErr
	}
	if closeErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeArchiveWrite, "failed to finalize archive", closeErr)
	}
	return res, nil
}

func addFile(tw *tar.Writer, path, name string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fsError("failed to open staged file", err, path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fsError("failed to stat staged file", err, path)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     0o644,
		ModTime:  time.Unix(0, 0),
		Format:   tar.FormatGNU,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, apperrors.WrapWithContext(apperrors.ErrCodeArchiveWrite,
			"failed to write entry header", err, map[string]any{"entry": name})
	}

	n, err := io.CopyN(tw, f, info.Size())
	if err != nil {
		return n, fsError("failed to copy staged file", err, path)
	}
	return n, nil
}

func fsError(msg string, err error, path string) error {
	return apperrors.WrapWithContext(apperrors.ErrCodeFilesystem, msg, err, map[string]any{"path": path})
}
