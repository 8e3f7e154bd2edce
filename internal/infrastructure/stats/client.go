// Package stats talks to the external view statistics service.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
	zlog "github.com/rs/zerolog/log"
)

// DateTimeLayout is the timestamp format used on the stats wire.
const DateTimeLayout = "2006-01-02 15:04:05"

type Hit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

type hitBody struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

type viewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

type Config struct {
	BaseURL string
	// ReadTimeout bounds GET /stats, WriteTimeout bounds POST /hit.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Workers      int
	QueueSize    int
	// BreakerFailures consecutive query failures open the breaker for BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration
}

type Recorder interface {
	RecordStatsDrop()
}

type Client struct {
	base    string
	http    *http.Client
	cfg     Config
	breaker *breaker
	queue   *hitQueue
	metrics Recorder
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		cfg:     cfg,
		breaker: newBreaker(cfg.BreakerFailures, cfg.BreakerCooldown),
		queue:   newHitQueue(cfg.Workers, cfg.QueueSize),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Close waits for queued hits to be sent.
func (c *Client) Close() {
	c.queue.stop()
}

// RecordHit queues a hit and returns at once. The request id of ctx is kept,
// its cancellation is not.
func (c *Client) RecordHit(ctx context.Context, h Hit) {
	rid := appCtx.GetRequestID(ctx)
	ok := c.queue.trySubmit(func() {
		bg := appCtx.WithRequestID(context.Background(), rid)
		if err := c.PostHit(bg, h); err != nil {
			zlog.Warn().Err(err).Str("uri", h.URI).Str("request_id", rid).Msg("stats hit dropped")
		}
	})
	if !ok {
		if c.metrics != nil {
			c.metrics.RecordStatsDrop()
		}
		zlog.Warn().Str("uri", h.URI).Str("request_id", rid).Msg("stats queue full, hit dropped")
	}
}

// PostHit sends one hit synchronously.
func (c *Client) PostHit(ctx context.Context, h Hit) error {
	body, err := json.Marshal(hitBody{
		App:       h.App,
		URI:       h.URI,
		IP:        h.IP,
		Timestamp: h.Timestamp.UTC().Format(DateTimeLayout),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/hit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("stats: POST /hit status %d", resp.StatusCode)
	}
	return nil
}

// QueryHits returns hits per uri for [start, end]. URIs without hits are absent.
func (c *Client) QueryHits(ctx context.Context, start, end time.Time, uris []string, unique bool) (map[string]int64, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(DateTimeLayout))
	q.Set("end", end.UTC().Format(DateTimeLayout))
	for _, u := range uris {
		q.Add("uris", u)
	}
	q.Set("unique", strconv.FormatBool(unique))

	var out map[string]int64
	err := c.breaker.call(ctx, func() error {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/stats?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("stats: GET /stats status %d", resp.StatusCode)
		}

		var rows []viewStats
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return fmt.Errorf("stats: decode: %w", err)
		}
		out = make(map[string]int64, len(rows))
		for _, r := range rows {
			out[r.URI] += r.Hits
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	rid := appCtx.GetRequestID(req.Context())
	if rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	log := zlog.Debug()
	if err != nil {
		log = zlog.Warn().Err(err)
	} else {
		log = log.Int("status", resp.StatusCode)
	}
	log.Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", rid).
		Dur("duration", time.Since(start)).
		Msg("stats request")
	return resp, err
}
