package media

import (
	"path/filepath"
	"strings"
)

// FileType represents the kind of a local media file.
type FileType string

const (
	// FileTypeVideo is a container with a video stream.
	FileTypeVideo FileType = "video"
	// FileTypeAudio is an audio-only file.
	FileTypeAudio FileType = "audio"
	// FileTypeOther is anything the encoder does not handle.
	FileTypeOther FileType = "other"
)

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".opus": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
}

// GetFileType classifies path by its extension (case-insensitive).
func GetFileType(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for path, or application/octet-stream.
func GetMimeType(path string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}
