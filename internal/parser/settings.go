package parser

import "encoding/json"

// ParseSettings controls one parse request. Zero-value fields in a request
// body fall back to the defaults below via UnmarshalJSON, so a partial
// settings object behaves like the full default set with overrides.
type ParseSettings struct {
	ConfMinWord         int      `json:"conf_min_word"`
	ConfMinLine         int      `json:"conf_min_line"`
	MaxLinesConsidered  int      `json:"max_lines_considered"`
	MergeAdjacentLines  bool     `json:"merge_adjacent_lines"`
	JunkFilter          bool     `json:"junk_filter"`
	Verify              *bool    `json:"verify,omitempty"`
	VerifyProviderOrder []string `json:"verify_provider_order"`
	MaxVerifyQueries    int      `json:"max_verify_queries"`
}

// MaxVerifyQueriesCap is the hard ceiling on external lookups per
// verification call, regardless of configured values.
const MaxVerifyQueriesCap = 6

// DefaultSettings returns the deployment-independent defaults.
func DefaultSettings() ParseSettings {
	return ParseSettings{
		ConfMinWord:         30,
		ConfMinLine:         35,
		MaxLinesConsidered:  80,
		MergeAdjacentLines:  true,
		JunkFilter:          true,
		VerifyProviderOrder: []string{"google_books", "open_library"},
		MaxVerifyQueries:    MaxVerifyQueriesCap,
	}
}

// UnmarshalJSON decodes settings starting from the defaults, so omitted
// fields keep their default value instead of the Go zero value.
func (s *ParseSettings) UnmarshalJSON(data []byte) error {
	type alias ParseSettings
	tmp := alias(DefaultSettings())
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*s = ParseSettings(tmp)
	return nil
}

// VerifyEnabled resolves the optional verify flag against a deployment
// default. An explicit false in the request always wins.
func (s ParseSettings) VerifyEnabled(deploymentDefault bool) bool {
	if s.Verify == nil {
		return deploymentDefault
	}
	return *s.Verify
}

// QueryBudget returns the effective verification query budget.
func (s ParseSettings) QueryBudget() int {
	if s.MaxVerifyQueries < MaxVerifyQueriesCap {
		if s.MaxVerifyQueries < 0 {
			return 0
		}
		return s.MaxVerifyQueries
	}
	return MaxVerifyQueriesCap
}
