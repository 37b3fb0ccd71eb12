package bracket

// RoundInfo describes one round of a generated bracket.
type RoundInfo struct {
	RoundNumber int       `json:"round_number"`
	RoundName   string    `json:"round_name"`
	MatchCount  int       `json:"match_count"`
	MatchType   MatchType `json:"match_type"`
}

// BracketResult summarizes one generation call. It is built once and not
// modified afterwards.
type BracketResult struct {
	Generator           string      `json:"generator"`
	ParticipantCount    int         `json:"participant_count"`
	BracketSize         int         `json:"bracket_size"`
	TotalRounds         int         `json:"total_rounds"`
	ByeCount            int         `json:"bye_count"`
	MatchesCreated      int         `json:"matches_created"`
	ByeMatchesProcessed int         `json:"bye_matches_processed"`
	RoundStructure      []RoundInfo `json:"round_structure"`
}
