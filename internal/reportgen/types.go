// Package reportgen provides the webhook integration that produces periodic
// report content for a computed calendar window.
package reportgen

// ReportContent represents the structured content returned by the generation webhook
type ReportContent struct {
	Headline   string       `json:"headline"`
	Highlights []Highlight  `json:"highlights"`
	Totals     PeriodTotals `json:"totals"`
}

// Highlight is a single notable episode in the report window
type Highlight struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// PeriodTotals aggregates ingestion activity over the window
type PeriodTotals struct {
	EpisodesIngested int `json:"episodes_ingested"`
	FailedRequests   int `json:"failed_requests"`
	HoursOfAudio     int `json:"hours_of_audio"`
}
