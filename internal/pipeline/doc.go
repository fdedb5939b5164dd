/*
Package pipeline sequences one download job:

	fetching -> transforming (optional) -> finalizing -> delivering -> cleanup

Every job gets its own working directory under the environment's temp dir,
named by its job id. Fetch and finalize failures are terminal and reported to
the client; a transform failure falls back to the untouched download and the
job still succeeds. Transforms are planned on a media.Clip and rendered with a
single encoder run, so trimming and dubbing together cost one encode.

Finished files are named after the sanitized title plus one suffix per
transform applied (_Segmented, then _AIDubbed). When the name is taken in the
destination, the job's HHMMSS timestamp is inserted, then the first eight
characters of the job id. Names are reserved atomically so concurrent jobs
with the same title never overwrite each other.
*/
package pipeline
