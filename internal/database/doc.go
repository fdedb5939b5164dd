// Package database is the SQLite job ledger.
//
// Every finished job, successful or not, is recorded in the jobs table
// through the pipeline.Observer hook. The ledger backs the /api/jobs routes
// and feeds job and download counts to the metrics collector.
//
// The database runs in WAL mode so listing jobs does not block recording them.
package database
