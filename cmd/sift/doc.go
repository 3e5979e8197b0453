// Package main hosts the Sift CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into analysis runs,
// stored-result queries, the HTTP server, the inbox watcher and configuration
// scaffolding. Configuration, logging, the model client and the breaker
// registry are resolved once per process by commandContext so subcommands only
// deal with input and output.
//
// Results go to stdout (JSON, YAML or a table); logs go to stderr. Failed
// analyses exit with a status derived from the pipeline error kind.
package main
