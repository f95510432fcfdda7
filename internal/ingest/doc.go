// Package ingest finds packaging sources: directory scans for batch runs
// and a filesystem watcher that waits for new files to finish copying
// before handing them to the pipeline.
package ingest
