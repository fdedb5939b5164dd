// Package memory keeps the server inside a container memory limit.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from the container limit:
//
//   - GOMEMLIMIT: standard Go variable; when set nothing else is read.
//   - MEMORY_LIMIT: container limit in bytes, usually from the Kubernetes
//     Downward API (resourceFieldRef: limits.memory).
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, default
//     0.75. ffmpeg and yt-dlp run as child processes outside the Go heap,
//     so leave them room.
//
// A [Gate] samples heap usage and closes once it crosses the critical
// threshold. The pipeline waits on the gate before each encoder run, so a
// burst of dub or segment requests queues instead of pushing the process
// into an OOM kill.
package memory
