package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/stride-dev/stride/internal/errors"
)

// Transcript record types written by the external agent tool.
const (
	RecordMessage  = "message"
	RecordToolCall = "tool_call"
	RecordQuestion = "question"
	RecordResult   = "result"
)

// TranscriptRecord is one line of a session transcript file.
type TranscriptRecord struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id,omitempty"`
	Role      string  `json:"role,omitempty"`
	Content   string  `json:"content,omitempty"`
	Tool      string  `json:"tool,omitempty"`
	Status    string  `json:"status,omitempty"`
	CostUSD   float64 `json:"cost_usd,omitempty"`
}

// IsQuestion reports whether the record represents a question directed at
// the user: either an explicit question record, or an assistant message
// whose content ends with a question mark.
func (r TranscriptRecord) IsQuestion() bool {
	if r.Type == RecordQuestion {
		return true
	}
	if r.Type == RecordMessage && r.Role == "assistant" {
		return strings.HasSuffix(strings.TrimSpace(r.Content), "?")
	}
	return false
}

// TranscriptSnapshot is the parsed view of an append-only transcript file.
// The pipeline only ever reads transcripts; the external agent owns them.
type TranscriptSnapshot struct {
	SessionID string             `json:"session_id"`
	Records   []TranscriptRecord `json:"records"`
	Ended     bool               `json:"ended"`
	CostUSD   float64            `json:"cost_usd"`
}

// ParseTranscript parses a JSONL transcript. Malformed or truncated lines
// (including a partial final line from a write in progress) are skipped;
// the parse never fails on content.
func ParseTranscript(data []byte) *TranscriptSnapshot {
	snapshot := &TranscriptSnapshot{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record TranscriptRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}

		if snapshot.SessionID == "" && record.SessionID != "" {
			snapshot.SessionID = record.SessionID
		}
		if record.Type == RecordResult {
			snapshot.Ended = true
			if record.CostUSD > 0 {
				snapshot.CostUSD = record.CostUSD
			}
		}
		snapshot.Records = append(snapshot.Records, record)
	}

	return snapshot
}

// DiffTranscripts returns the records present in next but not in prev.
// Transcripts are append-only, so the diff is simply the tail beyond
// prev's length. A nil prev means every record is new. If next is shorter
// than prev (the file was truncated or replaced, which the contract
// forbids), the whole next snapshot is treated as new.
func DiffTranscripts(prev, next *TranscriptSnapshot) []TranscriptRecord {
	if next == nil {
		return nil
	}
	if prev == nil || len(next.Records) < len(prev.Records) {
		return next.Records
	}
	return next.Records[len(prev.Records):]
}

// ExtractSessionID parses one structured output line from the agent CLI
// and returns the session identifier it carries. This is the only source
// of session identity: ids are discovered, never guessed.
func ExtractSessionID(line []byte) (string, error) {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &payload); err != nil {
		return "", errors.NewParseError("agent output line is not valid JSON", err)
	}
	if payload.SessionID == "" {
		return "", errors.NewParseError("agent output line has no session_id", nil)
	}
	return payload.SessionID, nil
}
