package transcript

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnknownSpeaker labels chunks whose text carries no "Label: " prefix.
const UnknownSpeaker = "Unknown"

// speakerLabelWindow bounds how far into a chunk a "Label: " separator may
// appear and still be treated as a speaker label.
const speakerLabelWindow = 40

var (
	timeRangeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})`)
	cueIndexRe  = regexp.MustCompile(`^\d+$`)
	voiceSpanRe = regexp.MustCompile(`^<v(?:\.[^\s>]+)?\s+([^>]+)>`)
	markupRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

type scanState int

const (
	stateIdle scanState = iota
	stateInCue
)

type segmenter struct {
	state   scanState
	pending []string
	start   float64
	end     float64
	chunks  []Chunk
}

// Segment parses caption text into ordered, contiguously numbered chunks.
//
// Cue indices in the source are discarded; numbering restarts at 1 on every
// call. Malformed input degrades to fewer chunks rather than failing, and
// input without any time-range line yields an empty slice.
func Segment(raw string) []Chunk {
	s := &segmenter{}
	for _, line := range strings.Split(raw, "\n") {
		s.consume(line)
	}
	s.flush()
	if s.chunks == nil {
		return []Chunk{}
	}
	return s.chunks
}

func (s *segmenter) consume(line string) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" || isHeader(line) {
		return
	}
	if match := timeRangeRe.FindStringSubmatch(line); match != nil {
		s.flush()
		s.state = stateInCue
		s.start, _ = ParseTimestamp(match[1])
		s.end, _ = ParseTimestamp(match[2])
		return
	}
	if s.state != stateInCue || cueIndexRe.MatchString(line) {
		return
	}
	if text := cleanCaptionLine(line); text != "" {
		s.pending = append(s.pending, text)
	}
}

func (s *segmenter) flush() {
	if s.state != stateInCue || len(s.pending) == 0 {
		return
	}
	joined := norm.NFC.String(strings.Join(s.pending, " "))
	speaker, text := splitSpeaker(joined)
	s.chunks = append(s.chunks, Chunk{
		Number:  len(s.chunks) + 1,
		Speaker: speaker,
		Text:    text,
		Start:   s.start,
		End:     s.end,
	})
	s.pending = s.pending[:0]
}

func isHeader(line string) bool {
	return line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || strings.HasPrefix(line, "WEBVTT\t")
}

// cleanCaptionLine rewrites a leading <v Name> voice span into "Name: " form
// and strips any remaining inline markup.
func cleanCaptionLine(line string) string {
	if match := voiceSpanRe.FindStringSubmatch(line); match != nil {
		line = strings.TrimSpace(match[1]) + ": " + line[len(match[0]):]
	}
	line = markupRe.ReplaceAllString(line, "")
	return strings.Join(strings.Fields(line), " ")
}

func splitSpeaker(text string) (string, string) {
	idx := strings.Index(text, ": ")
	if idx <= 0 || idx > speakerLabelWindow {
		return UnknownSpeaker, text
	}
	label := strings.TrimSpace(text[:idx])
	if label == "" {
		return UnknownSpeaker, text
	}
	return label, strings.TrimSpace(text[idx+2:])
}

// ParseTimestamp converts an HH:MM:SS.mmm caption timestamp into seconds.
func ParseTimestamp(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	clock, millisText, ok := strings.Cut(value, ".")
	if !ok {
		return 0, false
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.Atoi(parts[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, true
}
