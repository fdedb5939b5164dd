// Package handlers implements the HTTP endpoints of the download service.
//
// Endpoints:
//   - POST /api/video-info: inspect a URL for metadata and formats
//   - POST /api/process: run a download job and deliver the result
//   - GET /api/download_file?file=: stream a finished file from the final directory
//   - GET /api/jobs, GET /api/jobs/{id}: read the job ledger
//   - GET /api/jobs/feed: websocket of job records as jobs finish
//   - GET /health, GET /livez, GET /version
//
// Every JSON failure uses the {"success": false, "error": "..."} envelope.
package handlers
