/*
Package workers sizes and runs small worker pools in containerized
environments.

Worker counts are derived from GOMAXPROCS rather than runtime.NumCPU, so a pod
limited to 2 CPUs on a 64-core node runs 2 encodes at once, not 64:

	n := workers.ForCPU(5) // concurrent segment encodes

Operators can pin the count with ENCODE_THREADS:

	env:
	- name: ENCODE_THREADS
	  value: "2"

Each runs a bounded pool over an index range and stops handing out work after
the first failure:

	err := workers.Each(ctx, n, len(segments), func(ctx context.Context, i int) error {
		return encoder.Render(ctx, segments[i], outputs[i])
	})
*/
package workers
