// Command mediatool runs the segment and dub transforms on local files
// without the HTTP service.
//
// Usage:
//
//	mediatool <command> [flags] <file>
//
// Commands:
//
//	segment  Split the input into consecutive segments (-seconds, default 30)
//	         and write at most five of them as <session>_segment_<n>.mp4,
//	         or .mp3 for audio inputs. Segments render in parallel.
//
//	dub      Replace the input's audio with narration of -text. Video keeps
//	         its picture and loops the narration to the end; audio inputs
//	         are replaced by the narration as <session>_dubbed.mp3.
//
// Both commands accept -out (default: the input's directory) and -session
// (default: a random prefix). When stdout is not a terminal only the output
// paths are printed, one per line.
//
// Environment:
//
//	FFMPEG_PATH, FFPROBE_PATH, TTS_LANG, TTS_TLD, TTS_BASE_URL, ENCODE_THREADS
//
// A .env file in the working directory is loaded first.
package main
