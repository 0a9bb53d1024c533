package explorer

import (
	"context"
	"io"
	"net/http"

	"github.com/utxokit/utxokit/internal/models"
)

// defaultHTTPClient is used when the config does not inject a transport.
// Timeout and retry policy belong to the caller.
var defaultHTTPClient models.HTTPClient = &http.Client{}

// request performs one HTTP exchange and hands back the raw status and body.
// Transport-level failures come back as a ProviderError with Err set; status
// interpretation is left to the adapter.
func request(ctx context.Context, client models.HTTPClient, provider, method, url string, headers map[string]string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, &models.ProviderError{Provider: provider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &models.ProviderError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &models.ProviderError{Provider: provider, Err: err}
	}
	return resp.StatusCode, respBody, nil
}

// success reports whether the status code is in the 2xx range.
func success(status int) bool {
	return status >= 200 && status < 300
}
