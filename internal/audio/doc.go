// Package audio turns a track locator into paced 20 ms PCM frames.
//
// Locators are local paths or http(s) URLs. MP3, FLAC and 16-bit PCM WAV
// are decoded, downmixed or duplicated to stereo and resampled to 48 kHz
// before being pushed into a sink connection.
package audio
