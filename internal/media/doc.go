// Package media plans and renders clips.
//
// A Clip is a pure description of the output: a window of a source file and an
// optional replacement audio track. Trim and WithAudio transform plans without
// touching the filesystem; the Encoder turns a finished plan into a file with a
// single ffmpeg run (libx264/aac, ultrafast preset) and inspects inputs with
// ffprobe.
package media
