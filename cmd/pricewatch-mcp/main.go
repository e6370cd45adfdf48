// Command pricewatch-mcp exposes a running pricewatch-server to MCP clients
// over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// quoteJobResponse mirrors the API response for POST /api/v1/quotes.
type quoteJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// quoteJobStatus mirrors the API response for GET /api/v1/quotes/:id.
type quoteJobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Quotes    []struct {
		Symbol    string `json:"symbol"`
		Price     string `json:"price"`
		Timestamp string `json:"timestamp"`
		Source    string `json:"source"`
	} `json:"quotes"`
}

func main() {
	apiURL := os.Getenv("PRICEWATCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"pricewatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("get_stock_prices",
		mcp.WithDescription("Look up the current price of Indian stocks by ticker (NSE, with MoneyControl and BSE as fallbacks). Prices that cannot be found are reported as 'Error'."),
		mcp.WithArray("symbols",
			mcp.Required(),
			mcp.Description("Ticker symbols, e.g. [\"TCS\", \"INFY\"]"),
		),
		mcp.WithNumber("max_age_ms",
			mcp.Description("Reuse prices resolved within this many milliseconds (default: 0, always fetch)"),
		),
	), handleGetStockPrices(apiURL, 2*time.Second))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleGetStockPrices(apiURL string, pollEvery time.Duration) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbols, err := request.RequireStringSlice("symbols")
		if err != nil || len(symbols) == 0 {
			return mcp.NewToolResultError("symbols is required and must be a non-empty array of strings"), nil
		}

		payload := map[string]any{"symbols": symbols}
		if maxAge := request.GetInt("max_age_ms", 0); maxAge > 0 {
			payload["max_age_ms"] = maxAge
		}

		respBody, err := apiPost(ctx, client, apiURL, "/api/v1/quotes", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("quote request failed: %v", err)), nil
		}

		var jobResp quoteJobResponse
		if err := json.Unmarshal(respBody, &jobResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse quote response: %v", err)), nil
		}
		if jobResp.ID == "" {
			errMsg := "quote job creation failed"
			if jobResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", jobResp.Error.Code, jobResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, "/api/v1/quotes/"+jobResp.ID, pollEvery)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling quote job failed: %v", err)), nil
		}

		var status quoteJobStatus
		if err := json.Unmarshal(resultBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse quote status: %v", err)), nil
		}
		return mcp.NewToolResultText(renderQuotes(status)), nil
	}
}

// renderQuotes formats a finished job as a plain-text table.
func renderQuotes(status quoteJobStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quotes %s: %s (%d/%d)\n\n", status.ID, status.Status, status.Completed, status.Total)

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Stock Symbol\tCurrent Price\tTimestamp\tSource")
	for _, q := range status.Quotes {
		src := q.Source
		if src == "" {
			src = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Symbol, q.Price, q.Timestamp, src)
	}
	_ = tw.Flush()
	return sb.String()
}

// apiPost sends a POST request to the pricewatch API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, endpoint string, every time.Duration) ([]byte, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}
			if resp.StatusCode == http.StatusNotFound {
				return nil, fmt.Errorf("job %s not found", endpoint)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}
