// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers paper batches to a Lark (Feishu) custom-bot
// webhook as interactive template cards.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// DeliveryError reports the batch at which delivery stopped. Later batches
// were not attempted.
type DeliveryError struct {
	Batch      int
	Total      int
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivering batch %d/%d: %v", e.Batch, e.Total, e.Err)
	}
	return fmt.Sprintf("delivering batch %d/%d: webhook returned %d: %s", e.Batch, e.Total, e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// LarkNotifier posts cards built from a configured template.
type LarkNotifier struct {
	WebhookURL          string
	TemplateID          string
	TemplateVersionName string
	BatchSize           int

	// MaxRetries bounds retries per batch on 429/503; 0 selects httputil's default.
	MaxRetries int

	HTTP    *http.Client
	Log     zerolog.Logger
	Metrics *observability.Metrics

	// Now returns the card date; nil means time.Now.
	Now func() time.Time
}

// NewLarkNotifier builds a notifier from configuration.
func NewLarkNotifier(cfg types.NotifyConfig, httpCfg types.HTTPConfig, log zerolog.Logger, m *observability.Metrics) *LarkNotifier {
	return &LarkNotifier{
		WebhookURL:          cfg.WebhookURL,
		TemplateID:          cfg.TemplateID,
		TemplateVersionName: cfg.TemplateVersionName,
		BatchSize:           cfg.BatchSize,
		MaxRetries:          cfg.WebhookRetries,
		HTTP:                &http.Client{Timeout: httpCfg.Timeout},
		Log:                 log,
		Metrics:             m,
	}
}

// Batch is one chunk of papers with its position in the whole list.
type Batch struct {
	Index  int // 1-based
	Total  int
	Offset int // papers before this batch
	Papers []types.PaperRecord
}

// Chunk splits papers into consecutive batches of at most size papers.
// A size below 1 uses types.DefaultBatchSize.
func Chunk(papers []types.PaperRecord, size int) []Batch {
	if size < 1 {
		size = types.DefaultBatchSize
	}
	total := (len(papers) + size - 1) / size
	batches := make([]Batch, 0, total)
	for off := 0; off < len(papers); off += size {
		end := min(off+size, len(papers))
		batches = append(batches, Batch{
			Index:  len(batches) + 1,
			Total:  total,
			Offset: off,
			Papers: papers[off:end],
		})
	}
	return batches
}

type message struct {
	MsgType string `json:"msg_type"`
	Card    card   `json:"card"`
}

type card struct {
	Type string   `json:"type"`
	Data cardData `json:"data"`
}

type cardData struct {
	TemplateID          string       `json:"template_id"`
	TemplateVersionName string       `json:"template_version_name"`
	Variables           cardVariable `json:"template_variable"`
}

type cardVariable struct {
	TodayDate  string      `json:"today_date"`
	Tag        string      `json:"tag"`
	TotalPaper int         `json:"total_paper"`
	TableRows  []tableRow  `json:"table_rows"`
	PaperList  []paperItem `json:"paper_list"`
	BatchIndex int         `json:"batch_index"`
	BatchTotal int         `json:"batch_total"`
}

type tableRow struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Published string `json:"published"`
	URL       string `json:"url"`
}

type paperItem struct {
	Counter    int     `json:"counter"`
	Title      string  `json:"title"`
	Abstract   string  `json:"abstract"`
	ZhAbstract *string `json:"zh_abstract"`
	URL        string  `json:"url"`
	Published  string  `json:"published"`
}

func (n *LarkNotifier) message(tag, today string, b Batch) message {
	v := cardVariable{
		TodayDate:  today,
		Tag:        tag,
		TotalPaper: len(b.Papers),
		BatchIndex: b.Index,
		BatchTotal: b.Total,
	}
	for i, p := range b.Papers {
		counter := b.Offset + i + 1
		v.TableRows = append(v.TableRows, tableRow{
			Index:     counter,
			Title:     p.Title,
			Published: p.Published,
			URL:       fmt.Sprintf("[%s](%s)", p.URL, p.URL),
		})
		v.PaperList = append(v.PaperList, paperItem{
			Counter:    counter,
			Title:      p.Title,
			Abstract:   p.Abstract,
			ZhAbstract: p.ZhAbstract,
			URL:        p.URL,
			Published:  p.Published,
		})
	}
	return message{
		MsgType: "interactive",
		Card: card{
			Type: "template",
			Data: cardData{
				TemplateID:          n.TemplateID,
				TemplateVersionName: n.TemplateVersionName,
				Variables:           v,
			},
		},
	}
}

// Post sends papers under tag, one card per batch. It stops at the first
// batch that fails and returns a *DeliveryError for it. An empty list sends
// nothing.
func (n *LarkNotifier) Post(ctx context.Context, tag string, papers []types.PaperRecord) error {
	if len(papers) == 0 {
		n.Log.Info().Str("tag", tag).Msg("no papers to send, skipping webhook")
		return nil
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	today := now().Format(types.DateLayout)

	for _, b := range Chunk(papers, n.BatchSize) {
		if err := n.send(ctx, n.message(tag, today, b)); err != nil {
			err.Batch, err.Total = b.Index, b.Total
			n.Metrics.Batch(false)
			n.Log.Error().Err(err).Int("batch", b.Index).Int("batch_total", b.Total).Msg("webhook delivery failed, not sending remaining batches")
			return err
		}
		n.Metrics.Batch(true)
		n.Log.Info().Int("batch", b.Index).Int("batch_total", b.Total).Int("papers", len(b.Papers)).Msg("webhook batch delivered")
	}
	return nil
}

func (n *LarkNotifier) send(ctx context.Context, msg message) *DeliveryError {
	body, err := json.Marshal(msg)
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("marshaling card: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, n.HTTP, req, n.MaxRetries)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	n.Log.Debug().RawJSON("response", jsonOrQuoted(text)).Msg("webhook response")
	return nil
}

func jsonOrQuoted(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	q, _ := json.Marshal(string(b))
	return q
}
