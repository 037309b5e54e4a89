package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxPromptRunes keeps very long recordings inside typical context windows.
const maxPromptRunes = 120000

// ErrMalformedOutput reports model output that could not be decoded. It is
// never retried.
var ErrMalformedOutput = errors.New("malformed extraction output")

const extractionPrompt = `You analyse customer and team meeting transcripts for a product team.

Return ONLY a JSON object with this shape:
{
  "summary": "2-4 sentence summary of the conversation",
  "context": "one of: customer_call, sales_call, internal_meeting, user_interview, support_call, other",
  "insights": [
    {
      "type": "pain | blocker | confusion | question | feature_request | idea | gain | outcome | opportunity | objection | buying_signal | feedback | other",
      "title": "short title, at most 70 characters",
      "description": "what was said and why it matters, at most 200 characters",
      "confidence": 0.0,
      "evidence": ["verbatim quote"],
      "speaker": "speaker name if known",
      "timestamp": "timestamp if known",
      "suggested_actions": ["next step"]
    }
  ]
}

Rules:
- confidence is a number between 0 and 1.
- Only include insights supported by the transcript.
- Return an empty insights array when nothing relevant was said.

TRANSCRIPT:
%s`

// BuildPrompt renders the extraction prompt for a transcript.
func BuildPrompt(transcript string) string {
	runes := []rune(transcript)
	if len(runes) > maxPromptRunes {
		transcript = string(runes[:maxPromptRunes])
	}
	return fmt.Sprintf(extractionPrompt, transcript)
}

// ParseExtraction decodes model output into an Extraction. It tolerates
// markdown fences, surrounding prose and a bare insights array.
func ParseExtraction(raw string) (*Extraction, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	if obj := sliceBetween(text, '{', '}'); obj != "" && (strings.Index(text, "{") < strings.Index(text, "[") || !strings.Contains(text, "[")) {
		var out Extraction
		if err := json.Unmarshal([]byte(obj), &out); err == nil {
			out.Summary = strings.TrimSpace(out.Summary)
			out.Context = strings.TrimSpace(out.Context)
			return &out, nil
		}
	}

	if arr := sliceBetween(text, '[', ']'); arr != "" {
		var insights []RawInsight
		if err := json.Unmarshal([]byte(arr), &insights); err == nil {
			return &Extraction{Insights: insights}, nil
		}
	}

	snippet := text
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}
	return nil, fmt.Errorf("%w: %q", ErrMalformedOutput, snippet)
}

func stripCodeFence(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func sliceBetween(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
