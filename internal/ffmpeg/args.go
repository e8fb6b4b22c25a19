package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/alnah/go-clipper/internal/format"
)

// AudioProfile fixes the encoding of an extracted audio track.
type AudioProfile struct {
	Name       string
	SampleRate int
	Channels   int
	Codec      string
	QScale     int    // VBR quality; used when Bitrate is empty
	Bitrate    string // CBR bitrate such as "192k"
	Ext        string // output file extension including the dot
}

// TranscriptionProfile is 16 kHz mono OGG Vorbis (~50 kbps), sized for speech recognition.
var TranscriptionProfile = AudioProfile{
	Name:       "transcription",
	SampleRate: 16000,
	Channels:   1,
	Codec:      "libvorbis",
	QScale:     2,
	Ext:        ".ogg",
}

// ArchivalProfile is 44.1 kHz stereo MP3 for keeping a listenable copy.
var ArchivalProfile = AudioProfile{
	Name:       "archival",
	SampleRate: 44100,
	Channels:   2,
	Codec:      "libmp3lame",
	Bitrate:    "192k",
	Ext:        ".mp3",
}

// Clip encoding defaults: H.264 video and AAC audio, playable everywhere.
const (
	clipVideoCodec   = "libx264"
	clipPreset       = "fast"
	clipCRF          = "23"
	clipPixelFormat  = "yuv420p"
	clipAudioCodec   = "aac"
	clipAudioBitrate = "128k"
)

// commonArgs silences the banner, never reads stdin, and overwrites the
// destination (callers always hand us a fresh per-operation path).
func commonArgs() []string {
	return []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}
}

// encodingArgs returns the codec flags for profile p.
func (p AudioProfile) encodingArgs() []string {
	args := []string{
		"-c:a", p.Codec,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
	}
	if p.Bitrate != "" {
		return append(args, "-b:a", p.Bitrate)
	}
	return append(args, "-q:a", strconv.Itoa(p.QScale))
}

// ProbeDurationArgs asks ffprobe for the container duration only, printed as
// a bare float on stdout.
func ProbeDurationArgs(input string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	}
}

// ExtractAudioArgs drops every stream except the first audio track and
// re-encodes it with profile p.
func ExtractAudioArgs(input, output string, p AudioProfile) []string {
	args := commonArgs()
	args = append(args, "-i", input, "-map", "0:a:0", "-vn")
	args = append(args, p.encodingArgs()...)
	return append(args, output)
}

// ExtractWindowArgs extracts [start, end) seconds of input's audio.
// Seeking before -i is fast; re-encoding keeps the cut sample-accurate.
func ExtractWindowArgs(input, output string, start, end float64, p AudioProfile) []string {
	args := commonArgs()
	args = append(args,
		"-ss", format.Timestamp(start),
		"-i", input,
		"-t", seconds(end-start),
		"-map", "0:a:0", "-vn",
	)
	args = append(args, p.encodingArgs()...)
	return append(args, output)
}

// CutClipArgs cuts duration seconds of input starting at start into a
// standalone MP4.
func CutClipArgs(input, output string, start, duration float64) []string {
	args := commonArgs()
	return append(args,
		"-ss", format.Timestamp(start),
		"-i", input,
		"-t", seconds(duration),
		"-c:v", clipVideoCodec,
		"-preset", clipPreset,
		"-crf", clipCRF,
		"-pix_fmt", clipPixelFormat,
		"-c:a", clipAudioCodec,
		"-b:a", clipAudioBitrate,
		"-movflags", "+faststart",
		output,
	)
}

func seconds(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}
