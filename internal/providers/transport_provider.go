package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"pixeld/internal/structures"
	"time"
)

type TransportProviderInterface interface {
	TriggerPixel(url string)
	Ajax(ctx context.Context, url string) ([]byte, error)
}

// TransportProvider carries the two outbound call shapes the identity core
// needs: a fire-and-forget pixel GET and a credentialed JSON GET. The ajax
// client keeps a cookie jar so the resolver endpoint sees its own cookies
// across calls, mirroring a withCredentials browser request.
type TransportProvider struct {
	pixelClient *http.Client
	ajaxClient  *http.Client
	logger      Logger
}

func NewTransportProvider(conf *structures.Config, logger Logger) (TransportProviderInterface, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &TransportProvider{
		pixelClient: &http.Client{Timeout: 10 * time.Second},
		ajaxClient: &http.Client{
			Timeout: conf.Resolver.Timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// TriggerPixel issues the GET in the background and never reports back.
// The response body is drained and discarded; errors are only logged.
func (t *TransportProvider) TriggerPixel(url string) {
	go func() {
		resp, err := t.pixelClient.Get(url)
		if err != nil {
			t.logger.Debugf(TypeTrack, "pixel emission failed: %s", err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}

func (t *TransportProvider) Ajax(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.ajaxClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
