// Package narration writes and speaks the voice-over that replaces a video's
// original soundtrack.
//
// Speech comes from the Google Translate TTS endpoint, requested in chunks of
// at most 100 characters and concatenated into one mp3. A Narrator attaches
// the track to a media.Clip; the encoder pads or loops it to the clip length.
package narration
