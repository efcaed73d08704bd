// Package workflows implements Arcanum's operations as composable
// functions decoupled from the CLI layer.
//
// Each workflow takes a context and an Options struct and returns a Result
// struct with the outcome. The cmd layer owns all presentation (spinners,
// colors, exit codes); workflows own orchestration: locating the project,
// resolving identities and recipients, driving the secrets engine, and
// persisting the cache.
//
// Batch workflows (Rekey with All, CacheRebuild) isolate per-file failures
// and return aggregated results alongside ErrPartialBatchFailure.
package workflows
