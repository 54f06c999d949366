package anthropic

import (
	"encoding/json"
	"strconv"
	"strings"
)

// costPage is one page of the cost_report response.
type costPage struct {
	Data    []costBucket `json:"data"`
	HasMore bool         `json:"has_more"`
}

// costBucket is one time-sliced data point. Timestamps are RFC 3339 UTC.
type costBucket struct {
	StartingAt string       `json:"starting_at"`
	EndingAt   string       `json:"ending_at"`
	Results    []costResult `json:"results"`
}

// costResult carries one USD amount. The API serializes amounts as decimal
// strings but this has changed before; kept raw for defensive parsing.
type costResult struct {
	Amount json.RawMessage `json:"amount"`
}

// amountUSD parses the polymorphic amount field. Missing or malformed
// amounts contribute zero rather than failing the bucket.
func (r costResult) amountUSD() (float64, bool) {
	if len(r.Amount) == 0 {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(r.Amount, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(r.Amount, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}

	return 0, false
}

// ProbeResult is the outcome of a single diagnostic request against the
// cost_report endpoint, served by the debug route.
type ProbeResult struct {
	KeyPresent bool   `json:"key_exists"`
	KeyPrefix  string `json:"key_prefix,omitempty"`
	KeyLength  int    `json:"key_length"`
	APIStatus  int    `json:"api_status,omitempty"`
	APIBody    string `json:"api_response,omitempty"`
	APIError   string `json:"api_error,omitempty"`
}
