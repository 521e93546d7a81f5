// Package cli implements the command-line interface of nodekit, the Cloud
// Native Stack node provisioning toolkit.
//
// # Commands
//
// pull - Repack a registry image as a legacy tar archive:
//
//	nodekit pull --registry gcr.io --repository google_containers \
//	    --image pause --digest 3.0 --out-path pause.tar
//
// Fetches a registry v2 schema 1 manifest, stages every layer as
// <id>/json, <id>/VERSION and <id>/layer.tar under --staging-dir, and writes
// the staged tree to an uncompressed tar archive.
//
// kubelet-config - Render the kubelet configuration:
//
//	nodekit kubelet-config --fact roles=kubernetes-master --fact cloud=gce \
//	    --override allow_privileged=true
//
// Merges host facts, facts and overrides documents, and KEY=VALUE pairs,
// then writes the assembled KubeletConfiguration as JSON (default), YAML or
// a table to stdout, a file, or a ConfigMap.
//
// # Global Flags
//
//	--log-level    Log level: debug, info, warn, error (default: info)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Environment Variables
//
//	LOG_LEVEL            Set logging verbosity (debug, info, warn, error)
//	NODEKIT_REGISTRY     Default for pull --registry
//	NODEKIT_STAGING_DIR  Default for pull --staging-dir
//	KUBECONFIG           Kubeconfig for ConfigMap URIs
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//	2  Context canceled or timeout
//
// Logs are JSON on stderr; stdout carries only command output.
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/cns-nodekit/pkg/cli.version=1.0.0'"
package cli
