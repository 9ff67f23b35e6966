package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
)

// maxWebBody caps how much of a response body is returned to the model.
const maxWebBody = 8192

type fetchWebContentTool struct {
	deps Deps
}

func (t *fetchWebContentTool) Name() string { return "fetch_web_content" }
func (t *fetchWebContentTool) Description() string {
	return "Fetch a URL and return status plus truncated body"
}

func (t *fetchWebContentTool) Execute(ctx context.Context, args map[string]any) string {
	url := argString(args, "url")
	if url == "" {
		return "Missing url"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("Error fetching URL: %v", err)
	}
	resp, err := t.deps.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Error fetching URL: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBody))
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err)
	}
	return fmt.Sprintf("Status: %d\nContent-Type: %s\n\n%s",
		resp.StatusCode, resp.Header.Get("Content-Type"), string(body))
}

type callAPITool struct {
	deps Deps
}

func (t *callAPITool) Name() string { return "call_api" }
func (t *callAPITool) Description() string {
	return "Call an HTTP API with method, optional JSON body and headers"
}

func (t *callAPITool) Execute(ctx context.Context, args map[string]any) string {
	url := argString(args, "url")
	if url == "" {
		return "Missing url"
	}
	method := strings.ToUpper(argStringDefault(args, "method", http.MethodGet))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
	default:
		return fmt.Sprintf("Unsupported method: %s", method)
	}

	var body io.Reader
	if data, ok := args["data"]; ok && data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("Error encoding request body: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Sprintf("Error calling API: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for k := range headers {
			req.Header.Set(k, argString(headers, k))
		}
	}

	resp, err := t.deps.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Error calling API: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBody))
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err)
	}
	return fmt.Sprintf("Status: %d\n\n%s", resp.StatusCode, string(respBody))
}
