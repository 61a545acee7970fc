// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - PageStore: Per-page records of every parsed Document
//   - ChunkStore: The current chunk set
//   - RunStore: The pipeline run ledger
//   - Parser: Turns a staged file into pages
//   - Splitter: Splits page content into header-aware segments
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the matching stages are skipped:
//
//   - Extractor: Schema-constrained extraction. Without it, metadata and
//     signature stages are disabled.
//   - Summariser: Free-text summaries. Without it, the summary stage is disabled.
//   - IndexPublisher: The search index. Without it, publishing and search are disabled.
//   - StagingWatcher: Change notifications for the staging directory. Without
//     it, serve only ingests at start-up and before scheduled runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
