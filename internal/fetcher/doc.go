// Package fetcher resolves a video URL into metadata and a local file.
//
// Two backends implement Fetcher. The default shells out to yt-dlp, which
// handles every site it supports and merges separate video and audio streams
// into an mp4. The youtube backend uses github.com/kkdai/youtube/v2 and needs
// no external tools, at the cost of being limited to progressive streams.
//
// Both backends report formats the same way: mp4 video only, one entry per
// height, highest first, at most six.
package fetcher
