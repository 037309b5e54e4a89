package cloudimport

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	cueTiming = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?\.\d{3}\s+-->\s+\d{2}:\d{2}(:\d{2})?\.\d{3}`)
	voiceTag  = regexp.MustCompile(`^<v(?:\.[^\s>]*)?\s+([^>]+)>(.*?)(?:</v>)?$`)
	markupTag = regexp.MustCompile(`</?[^>]+>`)
)

// VTTToText converts a WebVTT transcript into "Speaker: text" lines.
// Consecutive cues from the same speaker are merged.
func VTTToText(raw string) string {
	var (
		lines       []string
		lastSpeaker string
		inNote      bool
	)
	scanner := bufio.NewScanner(strings.NewReader(strings.TrimPrefix(raw, "\ufeff")))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			inNote = false
			continue
		case inNote:
			continue
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.HasPrefix(line, "NOTE"):
			inNote = true
			continue
		case cueTiming.MatchString(line), isCueIdentifier(line):
			continue
		}

		speaker, text := splitSpeaker(line)
		if text == "" {
			continue
		}
		if speaker != "" && speaker == lastSpeaker && len(lines) > 0 {
			lines[len(lines)-1] += " " + text
			continue
		}
		lastSpeaker = speaker
		if speaker == "" {
			lines = append(lines, text)
		} else {
			lines = append(lines, speaker+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func isCueIdentifier(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitSpeaker(line string) (string, string) {
	if m := voiceTag.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), cleanText(m[2])
	}
	line = cleanText(line)
	if idx := strings.Index(line, ": "); idx > 0 && idx <= 60 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+2:])
	}
	return "", line
}

func cleanText(s string) string {
	return strings.TrimSpace(markupTag.ReplaceAllString(s, ""))
}
