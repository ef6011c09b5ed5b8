// internal/telemetry/beacon.go
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Beacon posts aggregated metrics to an analytics sink, fire-and-forget.
// A nil or endpoint-less beacon is a no-op, so callers never need to guard.
type Beacon struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewBeacon creates a beacon client. An empty endpoint disables sending.
func NewBeacon(endpoint string, logger *zap.Logger) *Beacon {
	return &Beacon{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Send posts the payload asynchronously. Errors are logged at debug level
// and otherwise swallowed; there is no response handling and no retry.
func (b *Beacon) Send(payload map[string]interface{}) {
	if b == nil || b.endpoint == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		b.logger.Debug("beacon encode failed", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
		if err != nil {
			b.logger.Debug("beacon request failed", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			b.logger.Debug("beacon send failed", zap.Error(err))
			return
		}
		_ = resp.Body.Close()
	}()
}
