// Package ingest parses pre-transcribed meeting text so a meeting can enter
// the pipeline without an audio recording. Supported line forms:
//
//	MM:SS : Speaker Name : text
//	Speaker Name: text
//	plain text
//
// Parsed segments carry speaker labels when the file provides them; the
// diarization stage leaves provided labels untouched.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

var (
	// 0:11 : Alice : we should start
	timedLineRegex = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)
	// Alice: we should start
	speakerLineRegex = regexp.MustCompile(`^([A-Z][\w .-]{0,40}?):\s+(.+)$`)
)

// defaultSegmentGapSec spaces untimed segments so ordering invariants hold.
const defaultSegmentGapSec = 5.0

// ParseTranscriptFile reads a transcript file into ordered segments.
func ParseTranscriptFile(path string) ([]note.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return ParseTranscript(f)
}

// ParseTranscript reads transcript lines into ordered, non-overlapping
// segments. Malformed lines become unattributed segments rather than being
// dropped.
func ParseTranscript(r io.Reader) ([]note.Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var segments []note.Segment
	cursor := 0.0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var seg note.Segment
		if m := timedLineRegex.FindStringSubmatch(line); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])
			start := float64(minutes*60 + seconds)
			if start < cursor {
				start = cursor
			}
			seg = note.Segment{
				StartSec: start,
				EndSec:   start + defaultSegmentGapSec,
				Speaker:  strings.TrimSpace(m[3]),
				Text:     strings.TrimSpace(m[4]),
			}
		} else if m := speakerLineRegex.FindStringSubmatch(line); m != nil {
			seg = note.Segment{
				StartSec: cursor,
				EndSec:   cursor + defaultSegmentGapSec,
				Speaker:  strings.TrimSpace(m[1]),
				Text:     strings.TrimSpace(m[2]),
			}
		} else {
			seg = note.Segment{
				StartSec: cursor,
				EndSec:   cursor + defaultSegmentGapSec,
				Text:     line,
			}
		}

		segments = append(segments, seg)
		cursor = seg.EndSec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript contains no text")
	}
	return segments, nil
}
