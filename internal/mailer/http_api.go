package mailer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

func doRequest(ctx context.Context, client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return body, resp, nil
}

func statusError(action string, resp *http.Response, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 300 {
		detail = detail[:300]
	}
	return normalizeSendError(fmt.Errorf("%w: %s status %d: %s", ErrResponseInvalid, action, resp.StatusCode, detail))
}

func isSuccess(resp *http.Response) bool {
	return resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}
