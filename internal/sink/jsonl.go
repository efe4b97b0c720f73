// Package sink writes generated records to a stream, one JSON document per
// line, optionally paced so a downstream consumer sees a steady feed.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidRate is returned for a negative pace.
var ErrInvalidRate = errors.New("sink: invalid rate")

// Config holds the pacing of a writer.
type Config struct {
	// RecordsPerSecond caps the write rate. Zero disables pacing.
	RecordsPerSecond float64
	// Burst is the number of records written back to back before pacing
	// applies. If zero, it defaults to max(1, int(RecordsPerSecond)).
	Burst int
}

// JSONLines writes values as newline-delimited JSON.
//
// Thread Safety: Not safe for concurrent use.
type JSONLines struct {
	buf     *bufio.Writer
	enc     *json.Encoder
	limiter *rate.Limiter

	written  int
	waitTime time.Duration
}

// NewJSONLines wraps w. The caller must call Flush when done.
func NewJSONLines(w io.Writer, cfg Config) (*JSONLines, error) {
	if cfg.RecordsPerSecond < 0 || cfg.Burst < 0 {
		return nil, fmt.Errorf("%w: %v records/s, burst %d", ErrInvalidRate, cfg.RecordsPerSecond, cfg.Burst)
	}

	buf := bufio.NewWriter(w)
	j := &JSONLines{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
	if cfg.RecordsPerSecond > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = max(1, int(cfg.RecordsPerSecond))
		}
		j.limiter = rate.NewLimiter(rate.Limit(cfg.RecordsPerSecond), burst)
	}
	return j, nil
}

// Write encodes v on its own line, waiting for a slot when paced. Paced
// lines are flushed immediately so the consumer sees them at that pace.
func (j *JSONLines) Write(ctx context.Context, v any) error {
	if j.limiter != nil {
		start := time.Now()
		if err := j.limiter.Wait(ctx); err != nil {
			return err
		}
		j.waitTime += time.Since(start)
	}
	if err := j.enc.Encode(v); err != nil {
		return fmt.Errorf("encoding line %d: %w", j.written+1, err)
	}
	j.written++
	if j.limiter != nil {
		return j.buf.Flush()
	}
	return nil
}

// Flush writes any buffered lines.
func (j *JSONLines) Flush() error {
	return j.buf.Flush()
}

// Written returns the number of lines written.
func (j *JSONLines) Written() int {
	return j.written
}

// WaitTime returns the total time spent waiting for the pace.
func (j *JSONLines) WaitTime() time.Duration {
	return j.waitTime
}
