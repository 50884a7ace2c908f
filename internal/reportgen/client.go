package reportgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client handles communication with the report-generation webhook
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a new report-generation client with the given configuration
func NewClient(baseURL, secret string, stubMode bool) *Client {
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// Generate requests report content for the given period window
func (c *Client) Generate(ctx context.Context, kind, periodKey string, start, end time.Time) (*ReportContent, error) {
	if c.stubMode {
		// Return hardcoded mock data with simulated processing delay
		time.Sleep(2 * time.Second)
		return &ReportContent{
			Headline: fmt.Sprintf("Your %s listening report (%s)", kind, periodKey),
			Highlights: []Highlight{
				{
					Title:   "The Future of Edge Computing",
					Summary: "A deep dive into where compute is headed over the next decade.",
					URL:     "https://example.com/episodes/edge-computing",
				},
				{
					Title:   "Interview: Building Resilient Teams",
					Summary: "A veteran engineering leader on sustainable on-call culture.",
					URL:     "https://example.com/episodes/resilient-teams",
				},
			},
			Totals: PeriodTotals{
				EpisodesIngested: 12,
				FailedRequests:   1,
				HoursOfAudio:     9,
			},
		}, nil
	}

	// Production mode: make actual HTTP request to the generation webhook
	reqBody := map[string]interface{}{
		"kind":       kind,
		"period_key": periodKey,
		"start":      start.Format("2006-01-02"),
		"end":        end.Format("2006-01-02"),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Webhook-Secret", c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	var content ReportContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &content, nil
}
