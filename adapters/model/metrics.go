package model

import (
	"sort"
)

// FBeta computes the F-beta score of binary predictions. Beta=2 weights
// recall four times more than precision. Zero-division degenerates to 0
// rather than erroring, matching the trainer's evaluation contract.
func FBeta(yTrue, yPred []int, beta float64) float64 {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	b2 := beta * beta
	return (1 + b2) * precision * recall / (b2*precision + recall)
}

// AveragePrecision computes PR-AUC as the step-wise average precision:
// sum over descending-score cuts of (recall gain * precision). Tied scores
// are processed as one group.
func AveragePrecision(yTrue []int, probs []float64) float64 {
	nPos := 0
	for _, t := range yTrue {
		if t == 1 {
			nPos++
		}
	}
	if nPos == 0 {
		return 0
	}

	order := argsortDesc(probs)

	ap := 0.0
	tp, fp := 0, 0
	prevRecall := 0.0
	for k := 0; k < len(order); {
		// Consume the whole tie group before evaluating a cut.
		j := k
		for j < len(order) && probs[order[j]] == probs[order[k]] {
			if yTrue[order[j]] == 1 {
				tp++
			} else {
				fp++
			}
			j++
		}
		recall := float64(tp) / float64(nPos)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		k = j
	}
	return ap
}

// ROCAUC computes the area under the ROC curve via the rank-sum
// formulation, with average ranks for tied scores.
func ROCAUC(yTrue []int, probs []float64) float64 {
	nPos, nNeg := 0, 0
	for _, t := range yTrue {
		if t == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, len(probs))
	for k := 0; k < len(order); {
		j := k
		for j < len(order) && probs[order[j]] == probs[order[k]] {
			j++
		}
		avgRank := float64(k+j+1) / 2 // 1-based average rank of the tie group
		for i := k; i < j; i++ {
			ranks[order[i]] = avgRank
		}
		k = j
	}

	sumPosRanks := 0.0
	for i, t := range yTrue {
		if t == 1 {
			sumPosRanks += ranks[i]
		}
	}
	u := sumPosRanks - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg))
}

func argsortDesc(vals []float64) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })
	return order
}
