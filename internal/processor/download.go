package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/doclab/doclab/internal/errors"
)

const downloadAttempts = 3

// permanentError marks fetch failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// download fetches a source URL with bounded retries and exponential
// backoff. The body is capped at MaxFileSize+1 so oversized responses are
// detected without buffering them whole.
func (p *Processor) download(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: p.cfg.DownloadTimeout}

	var lastErr error
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			p.logger.Warn("retrying download",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.NewResourceError("download cancelled", ctx.Err())
			}
		}

		data, err := p.fetch(ctx, client, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.NewResourceError(
		fmt.Sprintf("failed to download %s", url), lastErr)
}

func (p *Processor) fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, &permanentError{err: err}
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, &permanentError{err: fmt.Errorf("response exceeds maximum size %d", p.cfg.MaxFileSize)}
	}
	return data, nil
}
