// Package tally exports vouchers to the Tally ledger bridge.
package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizzplus/internal/domain/voucher"
)

var tracer = otel.Tracer("bizzplus/tally")

// maxErrorBody bounds how much of a failed response ends up in error_message.
const maxErrorBody = 512

// Client posts voucher payloads to a Tally bridge URL.
type Client struct {
	url        string
	httpClient *http.Client
}

var _ voucher.Exporter = (*Client)(nil)

// NewClient creates a bridge client.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type exportResponse struct {
	ID string `json:"id"`
}

// Export posts the voucher payload and returns the id assigned by the ledger.
func (c *Client) Export(ctx context.Context, v *voucher.Voucher) (string, error) {
	ctx, span := tracer.Start(ctx, "tally.export",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("voucher.id", v.ID.String()),
			attribute.String("voucher.type", string(v.Type)),
		))
	defer span.End()

	externalID, err := c.post(ctx, v)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return externalID, nil
}

func (c *Client) post(ctx context.Context, v *voucher.Voucher) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(v.Payload))
	if err != nil {
		return "", fmt.Errorf("build tally request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Voucher-ID", v.ID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tally request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("tally responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode tally response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("tally response has no id")
	}
	return out.ID, nil
}

// Simulator stands in for the bridge when no URL is configured.
type Simulator struct {
	now func() time.Time
}

var _ voucher.Exporter = (*Simulator)(nil)

// NewSimulator creates a simulated exporter.
func NewSimulator() *Simulator {
	return &Simulator{now: time.Now}
}

// Export returns TALLY-<unix millis>.
func (s *Simulator) Export(_ context.Context, _ *voucher.Voucher) (string, error) {
	return fmt.Sprintf("TALLY-%d", s.now().UnixMilli()), nil
}

// NewExporter returns a Client for url, or a Simulator when url is empty.
func NewExporter(url string, timeout time.Duration) voucher.Exporter {
	if url == "" {
		return NewSimulator()
	}
	return NewClient(url, timeout)
}
