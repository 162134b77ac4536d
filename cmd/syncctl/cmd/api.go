package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var errNotFound = errors.New("not found")

var httpClient = &http.Client{Timeout: 10 * time.Second}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Errors map[string]any  `json:"errors"`
}

// call performs one request against the server api and decodes the data
// field of the response into dst.
func call(ctx context.Context, method, url string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		// error bodies are not always json
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 400 && len(env.Errors) > 0:
		return fmt.Errorf("%s: %v", resp.Status, env.Errors)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: %s", resp.Status, env.Error)
	}

	if dst == nil || len(env.Data) == 0 {
		return nil
	}

	return json.Unmarshal(env.Data, dst)
}
