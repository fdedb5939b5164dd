// Package delivery hands finished artifacts to the client.
//
// A Strategy is chosen once at startup. It tells the pipeline where to place
// an artifact (Dir) and, after finalization, writes the HTTP response
// (Deliver):
//
//   - persist: the file stays in the final directory; the response names it
//   - relocate: the file moves to a downloads directory; the response links
//     to /api/download_file
//   - stream: the file is the response body, sent as an attachment
//   - object: the file is uploaded to an S3-compatible bucket; the response
//     carries a presigned URL
package delivery
