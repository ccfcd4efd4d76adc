// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and stores
// (defined in internal/store) to fulfill application features.
//
// Key components:
//
// 1. GenerationService:
//   - Validates generation requests against the configured catalog
//   - Persists pending jobs and emits task-request events for the workers
//   - Owner-scoped reads, listing, favourites and deletion
//
// 2. ExportService:
//   - Accepts exports only for completed generations
//   - Persists pending downloads with their expiry and schedules rendering
//   - Serves finished files while they are not expired
//
// 3. Error Handling:
//   - Records owned by another user are reported as not found
//   - Expected conditions are returned as sentinels wrapping the domain taxonomy
//   - Unexpected failures are wrapped in ServiceError
//
// Submission never blocks on generation or rendering. Work is handed to the
// task runtime through events.EventEmitter; if that hand-off fails the record
// stays pending and is picked up by the runner's recovery scan.
//
// The cleanup sweeper and the statistics aggregator live in the cleanup and
// stats subpackages.
package service
