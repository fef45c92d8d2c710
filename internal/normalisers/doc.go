// Package normalisers turns local files into the plain text the ingestion
// pipeline consumes. Each subpackage handles one family of formats and is
// registered with a Registry by file extension at startup.
package normalisers
