package risk

import "strings"

// Derived column suffixes. Every component appends columns under these
// names so consumers can select column families without positional coupling.
const (
	SuffixCurrent      = "_current"
	SuffixBaselineMean = "_baseline_mean"
	SuffixBaselineStd  = "_baseline_std"
	SuffixDeviation    = "_deviation"
	SuffixPctChange    = "_pct_change"
	SuffixZScore       = "_z"
	SuffixMovingAvg    = "_ma"
	SuffixMAChange     = "_ma_change"
	SuffixSlope        = "_slope"
	SuffixDeclining    = "_declining"
)

func CurrentCol(feature string) string      { return feature + SuffixCurrent }
func BaselineMeanCol(feature string) string { return feature + SuffixBaselineMean }
func BaselineStdCol(feature string) string  { return feature + SuffixBaselineStd }
func DeviationCol(feature string) string    { return feature + SuffixDeviation }
func PctChangeCol(feature string) string    { return feature + SuffixPctChange }
func ZScoreCol(feature string) string       { return feature + SuffixZScore }
func MovingAvgCol(feature string) string    { return feature + SuffixMovingAvg }
func MAChangeCol(feature string) string     { return feature + SuffixMAChange }
func SlopeCol(feature string) string        { return feature + SuffixSlope }
func DecliningCol(feature string) string    { return feature + SuffixDeclining }

// ModelSuffixes are the column families eligible as classifier input.
var ModelSuffixes = []string{
	SuffixDeviation,
	SuffixPctChange,
	SuffixZScore,
	SuffixSlope,
	SuffixDeclining,
}

// IsModelColumn reports whether a column belongs to a classifier-eligible
// family.
func IsModelColumn(name string) bool {
	for _, s := range ModelSuffixes {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// IsChangeColumn reports whether a column carries a deviation or percent
// change, the families the explainer reads.
func IsChangeColumn(name string) bool {
	return strings.Contains(name, SuffixPctChange) || strings.Contains(name, SuffixDeviation)
}

// BaseFeature strips the deviation/percent-change suffix from a derived
// column, returning the underlying variable name.
func BaseFeature(column string) string {
	column = strings.ReplaceAll(column, SuffixPctChange, "")
	column = strings.ReplaceAll(column, SuffixDeviation, "")
	return column
}
