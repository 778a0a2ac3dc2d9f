package ffmpeg

import "regexp"

var (
	reMissingEncoder = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder .* not found|Requested encoder .* not found`)

	reMissingFilter = regexp.MustCompile(
		`(?i)No such filter: '?(ass|subtitles)'?|Filter not found`)

	reInvalidInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|moov atom not found|` +
			`EBML header parsing failed|No such file or directory|could not find codec parameters`)

	reSubtitleInput = regexp.MustCompile(
		`(?i)Unable to open .*\.(ass|srt)|Error initializing filter 'subtitles'|Error initializing filter 'ass'|` +
			`Unable to parse option value .* as subtitle`)
)

// MatchMissingEncoder reports an encoder absent from the ffmpeg build.
func MatchMissingEncoder(stderr string) bool { return reMissingEncoder.MatchString(stderr) }

// MatchMissingFilter reports the caption burn-in filters being unavailable.
func MatchMissingFilter(stderr string) bool { return reMissingFilter.MatchString(stderr) }

// MatchInvalidInput reports an unreadable or truncated input file.
func MatchInvalidInput(stderr string) bool { return reInvalidInput.MatchString(stderr) }

// MatchSubtitleInput reports a caption file the burn-in filter rejected.
func MatchSubtitleInput(stderr string) bool { return reSubtitleInput.MatchString(stderr) }

// Hint maps known stderr patterns to an operator-facing suggestion.
func Hint(stderr string) string {
	switch {
	case MatchMissingEncoder(stderr):
		return "install an ffmpeg build with libx264 and aac encoders"
	case MatchMissingFilter(stderr):
		return "install an ffmpeg build with libass to burn in captions"
	case MatchSubtitleInput(stderr):
		return "regenerate captions with --resume-from=captions"
	case MatchInvalidInput(stderr):
		return "check that the recording and narration files are complete media files"
	default:
		return "inspect the ffmpeg output in the log"
	}
}
