// Package submit packages a finished test session for the external
// evaluation endpoint and decodes its per-card report.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/flashcoach/backend/internal/domain"
)

// maxErrorBody bounds how much of a failure response is echoed back to
// the caller.
const maxErrorBody = 512

type metaItem struct {
	ID          string `json:"id"`
	Front       string `json:"front"`
	Back        string `json:"back"`
	DurationSec int    `json:"durationSec"`
}

type metaDoc struct {
	Rubric     string     `json:"rubric"`
	Flashcards int        `json:"flashcards"`
	Items      []metaItem `json:"items"`
}

type audioPart struct {
	field    string
	filename string
	mimeType string
	data     []byte
}

// Submission is an assembled, immutable outbound payload. Send never
// mutates it, so a failed call can simply be retried with the same value
// without re-recording anything.
type Submission struct {
	meta  metaDoc
	parts []audioPart
}

// AudioParts reports how many cards carry a recording.
func (s *Submission) AudioParts() int { return len(s.parts) }

// Client posts submissions to the evaluation endpoint.
type Client struct {
	url    string
	rubric string
	http   *http.Client
	log    *slog.Logger
}

func NewClient(logger *slog.Logger, url, rubric string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		rubric: rubric,
		http:   &http.Client{Timeout: timeout},
		log:    logger.With("service", "submit"),
	}
}

// Build assembles the metadata document plus one audio part per card
// that has a recorded artifact. Cards without an artifact appear in the
// metadata but get no part; they are never padded with empty blobs.
func (c *Client) Build(cards []domain.Card, artifacts map[string]domain.Artifact) *Submission {
	sub := &Submission{
		meta: metaDoc{
			Rubric:     c.rubric,
			Flashcards: len(cards),
			Items:      make([]metaItem, 0, len(cards)),
		},
	}

	for _, card := range cards {
		sub.meta.Items = append(sub.meta.Items, metaItem{
			ID:          card.ID,
			Front:       card.Front,
			Back:        card.Back,
			DurationSec: card.DurationSec,
		})

		art, ok := artifacts[card.ID]
		if !ok {
			continue
		}
		sub.parts = append(sub.parts, audioPart{
			field:    "audio_" + card.ID,
			filename: card.ID + extensionFor(art.MIMEType),
			mimeType: art.MIMEType,
			data:     art.Data,
		})
	}
	return sub
}

// Send posts the submission as multipart form data and decodes the
// report. Transport failures and non-2xx statuses are surfaced verbatim.
func (c *Client) Send(ctx context.Context, sub *Submission) (domain.SubmissionReport, error) {
	body, contentType, err := encodeMultipart(sub)
	if err != nil {
		return domain.SubmissionReport{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return domain.SubmissionReport{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SubmissionReport{}, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.SubmissionReport{}, fmt.Errorf("evaluation endpoint: %s: %s",
			resp.Status, strings.TrimSpace(string(snippet)))
	}

	var report domain.SubmissionReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return domain.SubmissionReport{}, fmt.Errorf("decode report: %w", err)
	}

	c.log.InfoContext(ctx, "submission evaluated",
		slog.String("session_id", report.SessionID),
		slog.Int("results", len(report.Results)),
	)
	return report, nil
}

func encodeMultipart(sub *Submission) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	metaRaw, err := json.Marshal(sub.meta)
	if err != nil {
		return nil, "", fmt.Errorf("marshal meta: %w", err)
	}
	if err := w.WriteField("meta", string(metaRaw)); err != nil {
		return nil, "", err
	}

	for _, p := range sub.parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		h.Set("Content-Type", p.mimeType)

		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(p.data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".webm"
	}
}
