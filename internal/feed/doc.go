// Package feed pushes finished job records to websocket subscribers.
//
// A [Hub] is registered as a pipeline observer and served at
// /api/jobs/feed. Each message is one JSON job record, sent when the job
// ends, whatever its status. The feed carries no per-stage progress.
package feed
