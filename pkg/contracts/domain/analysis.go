package domain

// AnalysisSettings holds the user-selectable switches for one analysis run.
type AnalysisSettings struct {
	HideSensitive      bool `json:"hide_sensitive"`
	SplitIncomeExpense bool `json:"split_income_expense"`
	IPCrossReference   bool `json:"ip_cross_reference"`
	WhoisLookup        bool `json:"whois_lookup"`
}

// DefaultAnalysisSettings mirrors the defaults of the interactive tool:
// correlation and split on, masking and online lookups off.
func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		HideSensitive:      false,
		SplitIncomeExpense: true,
		IPCrossReference:   true,
		WhoisLookup:        false,
	}
}

// AnalysisResult summarizes one completed analysis run.
type AnalysisResult struct {
	TotalRecords int              `json:"total_records"`
	MatchedCount int              `json:"matched_count"`
	MultiIPCount int              `json:"multi_ip_count"`
	WhoisQueried int              `json:"whois_queried"`
	Settings     AnalysisSettings `json:"settings"`
}

// WhoisResult is the outcome of one IP ownership lookup.
type WhoisResult struct {
	IP           string `json:"ip"`
	Country      string `json:"country,omitempty"`
	ISP          string `json:"isp,omitempty"`
	QuerySuccess bool   `json:"query_success"`
}
