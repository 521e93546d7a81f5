// Package puller runs the image fetch and repack pipeline end to end.
//
// A run fetches the manifest, recreates the staging directory, stages every
// layer in manifest order and writes the staging tree into a tar archive:
//
//	client, err := registry.NewClient(coords)
//	if err != nil {
//	    return err
//	}
//	res, err := puller.New(client, puller.Config{
//	    StagingDir: "tmp",
//	    OutPath:    "image.tar",
//	}).Run(ctx)
//
// Every run is tagged with a random run_id in its log records. Counters and
// phase durations are kept in a per-run Prometheus registry and, when
// Config.MetricsFile is set, written in text exposition format so the node
// exporter textfile collector can pick them up.
//
// There is no retry and no cleanup: the first error aborts the run and leaves
// any staged layers on disk.
package puller
