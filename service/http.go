package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// HTTPStatusError is returned when the server answers with an unexpected status
type HTTPStatusError struct {
	URL    string
	Status int
	Body   []byte
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), e.Body)
}

// Temporary implements errTmpIf
func (e HTTPStatusError) Temporary() bool {
	switch e.Status {
	case 408, 429, 500, 501, 502, 503, 504:
		return true
	}
	return false
}

// Kind implements kindIf
func (e HTTPStatusError) Kind() ErrorKind { return KindTransfer }

// HTTPClient returns a client with the given timeout (0 for none)
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// GetBodyRetry: simple GET with N retries in case of temporary errors
func GetBodyRetry(ctx context.Context, client *http.Client, url string, header http.Header, nbRetries int) ([]byte, error) {
	return GetBodyRetryReq(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}, nbRetries)
}

// PostJSONRetry: POST the json encoding of body with N retries in case of temporary errors
func PostJSONRetry(ctx context.Context, client *http.Client, url string, body interface{}, nbRetries int) ([]byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("PostJSONRetry.Marshal: %w", err)
	}
	return GetBodyRetryReq(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nbRetries)
}

// GetBodyRetryReq executes the request built by newReq with N retries in case of temporary errors.
// The request is rebuilt for each try, as its body may have been consumed.
func GetBodyRetryReq(ctx context.Context, client *http.Client, newReq func() (*http.Request, error), nbRetries int) ([]byte, error) {
	var e *neturl.Error
	var err error

	if client == nil {
		client = &http.Client{}
	}
	for i := 0; i < nbRetries+1; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(((1 << i) - 1) * time.Second): // Exponential backoff, starting at 0
		}
		var body []byte
		body, err = func() ([]byte, error) {
			req, err := newReq()
			if err != nil {
				return nil, fmt.Errorf("NewRequest: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				if errors.As(err, &e) && e.Timeout() {
					return nil, MakeTemporary(err)
				}
				return nil, err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, MakeTemporary(fmt.Errorf("ReadAll: %w", err))
			}
			if resp.StatusCode != http.StatusOK {
				return nil, HTTPStatusError{URL: req.URL.Redacted(), Status: resp.StatusCode, Body: body}
			}
			return body, nil
		}()
		if err == nil {
			return body, nil
		}
		if !Temporary(err) {
			return nil, err
		}
	}
	return nil, err
}
