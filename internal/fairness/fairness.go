// Package fairness computes stratified performance metrics by demographic
// group. Group labels are read only for evaluation and are never supplied
// to the classifier as features.
package fairness

import (
	"sort"

	"driftwatch/adapters/model"
	"driftwatch/domain/risk"
)

// minGroupSize is the sample floor below which a group is dropped from the
// report rather than reported on noise.
const minGroupSize = 10

// Evaluate computes F2, PR-AUC, and ROC-AUC overall and per group over one
// evaluation split, with the same zero-division and single-class guards as
// the trainer. Disparity is the max-min F2 gap across qualifying groups.
func Evaluate(yTrue, yPred []int, probs []float64, groups []string) risk.FairnessReport {
	report := risk.FairnessReport{
		Overall: sliceMetrics(yTrue, yPred, probs),
		ByGroup: make(map[string]risk.GroupMetrics),
	}
	if len(groups) != len(yTrue) {
		return report
	}

	indexByGroup := make(map[string][]int)
	for i, g := range groups {
		if g == "" {
			continue
		}
		indexByGroup[g] = append(indexByGroup[g], i)
	}

	names := make([]string, 0, len(indexByGroup))
	for g := range indexByGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	var f2s []float64
	for _, g := range names {
		idx := indexByGroup[g]
		if len(idx) < minGroupSize {
			continue
		}
		gt := make([]int, len(idx))
		gp := make([]int, len(idx))
		gProbs := make([]float64, len(idx))
		for k, i := range idx {
			gt[k] = yTrue[i]
			gp[k] = yPred[i]
			gProbs[k] = probs[i]
		}
		m := sliceMetrics(gt, gp, gProbs)
		report.ByGroup[g] = m
		f2s = append(f2s, m.F2)
	}

	if len(f2s) > 0 {
		minF2, maxF2 := f2s[0], f2s[0]
		for _, v := range f2s[1:] {
			if v < minF2 {
				minF2 = v
			}
			if v > maxF2 {
				maxF2 = v
			}
		}
		report.Disparity = maxF2 - minF2
		report.HasDisparity = true
	}
	return report
}

func sliceMetrics(yTrue, yPred []int, probs []float64) risk.GroupMetrics {
	m := risk.GroupMetrics{
		F2: model.FBeta(yTrue, yPred, 2),
		N:  len(yTrue),
	}
	if countPositives(yTrue) > 0 {
		m.PRAUC = model.AveragePrecision(yTrue, probs)
	}
	if hasBothClasses(yTrue) {
		m.ROCAUC = model.ROCAUC(yTrue, probs)
	}
	return m
}

func countPositives(y []int) int {
	n := 0
	for _, label := range y {
		if label == 1 {
			n++
		}
	}
	return n
}

func hasBothClasses(y []int) bool {
	p := countPositives(y)
	return p > 0 && p < len(y)
}
