/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-nodekit/pkg/defaults"
	"github.com/NVIDIA/cns-nodekit/pkg/puller"
	"github.com/NVIDIA/cns-nodekit/pkg/registry"
)

func pullCmd() *cli.Command {
	return &cli.Command{
		Name:                  "pull",
		EnableShellCompletion: true,
		Usage:                 "Pull a schema 1 image into a legacy tar archive",
		Description: `Pull an image manifest in registry v2 schema 1 format and repack it as a
legacy per-layer tar archive:

  <id>/json       the layer's v1Compatibility metadata
  <id>/VERSION    always "1.0"
  <id>/layer.tar  the layer blob

Layers are staged under --staging-dir, which is removed and recreated on every
run, then archived to --out-path. Any failure aborts the run and leaves staged
content in place.

TLS certificates are verified unless --insecure-tls is set. Blob digests are
not checked unless --verify-digests is set.

# Examples

  nodekit pull --registry gcr.io --repository google_containers \
    --image pause --digest 3.0 --out-path pause.tar

  nodekit pull --registry localhost:5000 --plain-http --repository library \
    --image busybox --digest latest --out-path busybox.tar --verify-digests`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "registry",
				Usage:    "Registry host, optionally with port (e.g., gcr.io)",
				Sources:  cli.EnvVars("NODEKIT_REGISTRY"),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "repository",
				Usage:    "Repository path in front of the image name (e.g., google_containers)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "image",
				Usage:    "Image name (e.g., pause)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "digest",
				Usage:    "Manifest reference: a tag or a content digest",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "out-path",
				Usage:    "Path of the tar archive to write",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "staging-dir",
				Usage:   "Staging directory; destroyed and recreated on every run",
				Sources: cli.EnvVars("NODEKIT_STAGING_DIR"),
				Value:   puller.DefaultStagingDir,
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip registry TLS certificate verification",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Talk to the registry over plain HTTP",
			},
			&cli.BoolFlag{
				Name:  "verify-digests",
				Usage: "Verify every downloaded blob against its blobSum",
			},
			&cli.BoolFlag{
				Name:  "docker-credentials",
				Usage: "Authenticate with credentials from the Docker config",
			},
			&cli.FloatFlag{
				Name:  "max-rps",
				Usage: "Maximum registry requests per second (0 for unlimited)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write run metrics in Prometheus text format to this file",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Upper bound for the whole run",
				Value: defaults.PullTimeout,
			},
			&cli.DurationFlag{
				Name:  "blob-timeout",
				Usage: "Upper bound for a single layer download",
				Value: defaults.RegistryBlobTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			coords := registry.Coordinates{
				Registry:   cmd.String("registry"),
				Repository: cmd.String("repository"),
				Image:      cmd.String("image"),
				Digest:     cmd.String("digest"),
			}

			client, err := registry.NewClient(coords,
				registry.WithInsecureTLS(cmd.Bool("insecure-tls")),
				registry.WithPlainHTTP(cmd.Bool("plain-http")),
				registry.WithDockerCredentials(cmd.Bool("docker-credentials")),
				registry.WithMaxRequestsPerSecond(cmd.Float("max-rps")),
				registry.WithBlobTimeout(cmd.Duration("blob-timeout")),
			)
			if err != nil {
				return fmt.Errorf("invalid image coordinates: %w", err)
			}

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			p := puller.New(client, puller.Config{
				StagingDir:    cmd.String("staging-dir"),
				OutPath:       cmd.String("out-path"),
				VerifyDigests: cmd.Bool("verify-digests"),
				MetricsFile:   cmd.String("metrics-file"),
			})
			if _, err := p.Run(ctx); err != nil {
				return fmt.Errorf("failed to pull %s: %w", coords, err)
			}
			return nil
		},
	}
}
