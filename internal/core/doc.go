// Package core provides the business logic for running transformation
// pipelines over uploaded CSV data.
//
// It sits between the transport layers (HTTP in internal/web, the tabula CLI)
// and the engine (internal/pipeline over internal/transform), and owns
// everything a run needs beyond the engine itself:
//
//   - CSV decoding into a dataset and encoding back out ([DecodeCSV],
//     [EncodeCSV], [Records])
//   - A concurrency cap on runs, with drain on shutdown ([RunLimiter])
//   - A per-run timeout, run IDs and cancellation ([Service.CancelRun])
//   - Mapping of errors to user messages with support codes ([MapError])
//
// # Run flow
//
//  1. [Service.Transform] takes a run slot, waiting up to the configured time
//  2. The CSV is size-limited, BOM-stripped and decoded into a dataset
//  3. The pipeline JSON is decoded and its shape validated
//  4. The executor applies each step in order and stops at the first error
//
// # Error codes
//
// Every error a run can return maps to a code: PIPE001-PIPE005 for pipeline
// problems, COL001 for a missing column, FILE001-FILE004 for input files and
// RUN001-RUN005 for lookup, capacity, cancellation and timeouts. See error_messages.go.
package core
