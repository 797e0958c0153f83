package domain

import "time"

// Severity ranks a screening flag.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Weight returns the fixed per-severity contribution to the risk score.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 40
	case SeverityHigh:
		return 25
	case SeverityMedium:
		return 15
	case SeverityLow:
		return 8
	case SeverityInfo:
		return 3
	default:
		return 0
	}
}

// FlagCategory groups screening flags by concern.
type FlagCategory string

const (
	CategorySanctions    FlagCategory = "SANCTIONS"
	CategoryMixer        FlagCategory = "MIXER"
	CategorySource       FlagCategory = "SOURCE"
	CategoryJurisdiction FlagCategory = "JURISDICTION"
	CategoryBehavior     FlagCategory = "BEHAVIOR"
	CategoryPrivacy      FlagCategory = "PRIVACY"
	CategoryMarket       FlagCategory = "MARKET"
	CategoryOther        FlagCategory = "OTHER"
)

// ScreeningFlag is a single finding raised during screening.
type ScreeningFlag struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Severity     Severity     `json:"severity"`
	Category     FlagCategory `json:"category"`
	Source       string       `json:"source"`
	MatchedValue string       `json:"matched_value,omitempty"`
}

// ScreeningResult aggregates the flags for one screened address.
// RiskScore is a deterministic, monotone function of Flags: the sum of
// severity weights capped at 100. No flags means a score of zero.
type ScreeningResult struct {
	Address              string          `json:"address"`
	Blockchain           ChainID         `json:"blockchain"`
	ScreenedAt           time.Time       `json:"screened_at"`
	Flags                []ScreeningFlag `json:"flags"`
	IsSanctioned         bool            `json:"is_sanctioned"`
	IsMixerRelated       bool            `json:"is_mixer_related"`
	IsPrivacyCoinRelated bool            `json:"is_privacy_coin_related"`
	RiskScore            int             `json:"risk_score"`
}
