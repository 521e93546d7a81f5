/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-nodekit/pkg/facts"
	"github.com/NVIDIA/cns-nodekit/pkg/k8s/client"
	"github.com/NVIDIA/cns-nodekit/pkg/kubelet"
	"github.com/NVIDIA/cns-nodekit/pkg/serializer"
)

func kubeletCmd() *cli.Command {
	return &cli.Command{
		Name:                  "kubelet-config",
		EnableShellCompletion: true,
		Usage:                 "Render the kubelet configuration from facts and overrides",
		// KEY=VALUE pairs carry commas, e.g. roles=a,b.
		DisableSliceFlagSeparator: true,
		Description: `Render the kubelet configuration document from host facts and operator
overrides. Sources are merged in increasing precedence:

  1. host introspection (--collect-host): os_family, oscodename, hostname,
     and is_systemd as a default override
  2. --facts / --overrides documents (YAML or JSON file, http(s) URL, or
     ConfigMap URI cm://namespace/name)
  3. --fact / --override KEY=VALUE pairs (roles are comma separated)

The allow_privileged override and the roles fact are required.

# Examples

  nodekit kubelet-config --fact roles=kubernetes-master --fact cloud=gce \
    --override allow_privileged=true

  nodekit kubelet-config --collect-host --facts facts.yaml \
    --overrides cm://kube-system/node-overrides --output cm://kube-system/kubelet-config`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "facts",
				Usage: "Facts document: file path, http(s) URL, or ConfigMap URI",
			},
			&cli.StringFlag{
				Name:  "overrides",
				Usage: "Overrides document: file path, http(s) URL, or ConfigMap URI",
			},
			&cli.StringSliceFlag{
				Name:  "fact",
				Usage: "Fact as KEY=VALUE (can be repeated)",
			},
			&cli.StringSliceFlag{
				Name:  "override",
				Usage: "Override as KEY=VALUE (can be repeated)",
			},
			&cli.BoolFlag{
				Name:  "collect-host",
				Usage: "Collect os_family, oscodename, hostname and is_systemd from this host",
			},
			outputFlag(),
			formatFlag(serializer.FormatJSON),
			kubeconfigFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			kubeconfig := cmd.String("kubeconfig")
			src := facts.Sources{
				FactsFile:     cmd.String("facts"),
				OverridesFile: cmd.String("overrides"),
				FactPairs:     cmd.StringSlice("fact"),
				OverridePairs: cmd.StringSlice("override"),
				Kubeconfig:    kubeconfig,
			}
			if cmd.Bool("collect-host") {
				src.Host = &facts.HostCollector{}
			}

			f, o, err := src.Resolve(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve facts: %w", err)
			}

			cfg, err := kubelet.Assemble(f, o)
			if err != nil {
				return fmt.Errorf("failed to assemble kubelet config: %w", err)
			}
			slog.Debug("kubelet config assembled", "keys", cfg.Len())

			output := cmd.String("output")
			opts := []serializer.ConfigMapOption{serializer.WithComponent("kubelet-config")}
			if kubeconfig != "" && strings.HasPrefix(output, serializer.ConfigMapURIScheme) {
				k8s, _, err := client.GetKubeClientWithConfig(kubeconfig)
				if err != nil {
					return fmt.Errorf("failed to create kubernetes client: %w", err)
				}
				opts = append(opts, serializer.WithKubeClient(k8s))
			}

			w, err := serializer.NewFileWriterOrStdout(outFormat, output, opts...)
			if err != nil {
				return fmt.Errorf("failed to open output: %w", err)
			}
			if closer, ok := w.(serializer.Closer); ok {
				defer func() {
					if err := closer.Close(); err != nil {
						slog.Warn("failed to close output", "error", err)
					}
				}()
			}

			if err := w.Serialize(ctx, cfg); err != nil {
				return fmt.Errorf("failed to write kubelet config: %w", err)
			}
			return nil
		},
	}
}
