package finalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// sharedSecretHeader authenticates the bridge to the call-log sink.
const sharedSecretHeader = "X-Shared-Secret"

// callLogPayload is the sink's record schema. Every optional field is a
// pointer without omitempty: the sink distinguishes "absent" from "null" and
// requires explicit nulls for anything we do not have.
type callLogPayload struct {
	TwilioCallSID            *string `json:"twilio_call_sid"`
	OrgID                    *string `json:"org_id"`
	ProspectID               *string `json:"prospect_id"`
	Status                   string  `json:"status"`
	Direction                *string `json:"direction"`
	ToNumber                 *string `json:"to_number"`
	FromNumber               *string `json:"from_number"`
	Transcript               *string `json:"transcript"`
	AISummary                *string `json:"ai_summary"`
	StartedAt                *string `json:"started_at"`
	EndedAt                  *string `json:"ended_at"`
	Model                    *string `json:"model"`
	RecordingURL             *string `json:"recording_url"`
	RecordingDurationSeconds *int    `json:"recording_duration_seconds"`
}

// CallLogClient posts finished-call records to the external sink.
type CallLogClient struct {
	url          string
	anonKey      string
	sharedSecret string
	orgID        string
	http         *http.Client
}

// NewCallLogClient constructs a client for the sink at url. orgID may be
// empty; it is then sent as null.
func NewCallLogClient(url, anonKey, sharedSecret, orgID string, timeout time.Duration) (*CallLogClient, error) {
	if url == "" {
		return nil, fmt.Errorf("finalize: call-log url must not be empty")
	}
	if anonKey == "" || sharedSecret == "" {
		return nil, fmt.Errorf("finalize: call-log credentials must not be empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CallLogClient{
		url:          url,
		anonKey:      anonKey,
		sharedSecret: sharedSecret,
		orgID:        orgID,
		http:         &http.Client{Timeout: timeout},
	}, nil
}

// Post sends the record for rec. summary may be nil when no summary was
// produced; it is serialized as an explicit null.
func (c *CallLogClient) Post(ctx context.Context, rec CallRecord, summary *string) error {
	transcript := rec.Transcript
	payload := callLogPayload{
		TwilioCallSID: strPtr(rec.CallID),
		OrgID:         strPtr(c.orgID),
		Status:        "COMPLETED",
		Direction:     strPtr(rec.Direction),
		ToNumber:      strPtr(rec.ToNumber),
		FromNumber:    strPtr(rec.FromNumber),
		Transcript:    strPtr(transcript),
		AISummary:     summary,
		StartedAt:     timePtr(rec.StartedAt),
		EndedAt:       timePtr(rec.EndedAt),
		Model:         strPtr(rec.Model),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("finalize: marshal call-log payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("finalize: build call-log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set(sharedSecretHeader, c.sharedSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("finalize: post call-log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("finalize: call-log sink returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

// strPtr returns nil for the empty string so absent values serialize as null.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// timePtr formats a non-zero time as RFC3339, nil otherwise.
func timePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
