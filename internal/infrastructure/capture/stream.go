package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cipher-sentinel/internal/domain/host"
	"github.com/khanhnv2901/cipher-sentinel/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cipher-sentinel/internal/shared/errors"
)

// CDP method names understood by the stream reader.
const (
	MethodResponseReceived = "Network.responseReceived"
	MethodFrameNavigated   = "Page.frameNavigated"
)

// Sink receives the decoded feed.
type Sink interface {
	Observe(ctx context.Context, obs host.Observation) error
	Navigate(ctx context.Context) error
}

// Stats counts what a stream contained. Malformed lines are also counted
// in Skipped.
type Stats struct {
	Lines        int
	Observations int
	Navigations  int
	Skipped      int
	Malformed    int
}

// ReadOption configures ReadEvents.
type ReadOption func(*readConfig)

type readConfig struct {
	logger *zap.Logger
}

// WithLogger reports skipped malformed lines to logger.
func WithLogger(logger *zap.Logger) ReadOption {
	return func(c *readConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// envelope is decoded first to classify a line.
type envelope struct {
	Method   string         `json:"method"`
	Params   jsontext.Value `json:"params"`
	Navigate bool           `json:"navigate"`
	Response jsontext.Value `json:"response"`
	Host     string         `json:"host"`
}

type frameNavigated struct {
	Frame struct {
		ParentID string `json:"parentId"`
	} `json:"frame"`
}

// ReadEvents reads a JSON Lines feed and forwards it to sink. Each line is one of:
//
//	{"method":"Network.responseReceived","params":{...}}   full CDP message
//	{"requestId":"...","type":"Document","response":{...}} bare event params
//	{"host":"...","topLevelDocument":true,...}             plain observation
//	{"method":"Page.frameNavigated",...} or {"navigate":true}
//
// Blank lines, other CDP methods and responses without security details are
// skipped. Malformed lines are logged with their line number and skipped so
// one bad entry does not discard the rest of a capture. Only read failures,
// sink failures and cancellation end the stream early.
func ReadEvents(ctx context.Context, r io.Reader, sink Sink, opts ...ReadOption) (Stats, error) {
	cfg := readConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxEventBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			stats.Skipped++
			continue
		}

		err := dispatch(ctx, line, sink, &stats)
		if errors.Is(err, sharedErrors.ErrInvalidObservation) {
			stats.Skipped++
			stats.Malformed++
			cfg.logger.Warn("skipping malformed event", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read events: %w", err)
	}
	return stats, nil
}

// DecodeLine classifies a single feed entry. navigate reports a navigation
// signal; otherwise obs holds the observation, or ok is false for entries
// that carry neither.
func DecodeLine(line []byte) (obs host.Observation, navigate, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return host.Observation{}, false, false, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidObservation, err)
	}

	switch {
	case env.Navigate:
		return host.Observation{}, true, true, nil
	case env.Method == MethodFrameNavigated:
		var fn frameNavigated
		if len(env.Params) > 0 {
			if err := json.Unmarshal(env.Params, &fn); err != nil {
				return host.Observation{}, false, false, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidObservation, err)
			}
		}
		// Sub-frame navigations keep the current session.
		if fn.Frame.ParentID != "" {
			return host.Observation{}, false, false, nil
		}
		return host.Observation{}, true, true, nil
	case env.Method == MethodResponseReceived:
		obs, err := DecodeEvent(env.Params)
		return obs, false, err == nil, err
	case env.Method != "":
		return host.Observation{}, false, false, nil
	case len(env.Response) > 0:
		obs, err := DecodeEvent(line)
		return obs, false, err == nil, err
	case env.Host != "":
		if err := json.Unmarshal(line, &obs); err != nil {
			return host.Observation{}, false, false, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidObservation, err)
		}
		return obs, false, true, nil
	}
	return host.Observation{}, false, false, nil
}

func dispatch(ctx context.Context, line []byte, sink Sink, stats *Stats) error {
	obs, navigate, ok, err := DecodeLine(line)
	if err != nil {
		return err
	}
	switch {
	case navigate:
		stats.Navigations++
		return sink.Navigate(ctx)
	case ok && obs.Facts != nil:
		if err := sink.Observe(ctx, obs); err != nil {
			return err
		}
		stats.Observations++
		return nil
	default:
		stats.Skipped++
		return nil
	}
}
