package rest

import (
	"fmt"
	"strings"
)

// HeuristicPolicy adjusts the catalog rest time using the effort of the
// last set, its position in the exercise and the user's history.
type HeuristicPolicy struct{}

func (HeuristicPolicy) Recommend(in Input) Calculation {
	secs := in.BaseSeconds
	if secs <= 0 {
		secs = DefaultBaseSeconds
	}
	var why []string

	switch rpe := in.RPE; {
	case rpe == nil:
	case *rpe >= 9:
		secs += 60
		why = append(why, fmt.Sprintf("RPE %d is close to failure", *rpe))
	case *rpe == 8:
		secs += 30
		why = append(why, "RPE 8 needs extra recovery")
	case *rpe <= 5:
		secs -= 30
		if in.SetNumber <= 1 {
			secs -= 15
		}
		why = append(why, fmt.Sprintf("RPE %d leaves plenty in the tank", *rpe))
	}

	if in.SetNumber >= 3 {
		extra := 15 * (min(in.SetNumber, 6) - 2)
		secs += extra
		why = append(why, fmt.Sprintf("set %d adds accumulated fatigue", in.SetNumber))
	}

	if avg, ok := historicalRPE(in); ok && in.RPE != nil && float64(*in.RPE) > avg+1 {
		secs += 20
		why = append(why, fmt.Sprintf("harder than your usual RPE %.1f", avg))
	}
	if top, ok := historicalTopWeight(in); ok && in.WeightKg != nil && *in.WeightKg > top {
		secs += 15
		why = append(why, fmt.Sprintf("%.1f kg beats your previous best", *in.WeightKg))
	}

	return Calculation{
		RecommendedRestSeconds: secs,
		Reasoning:              reasoning(in, why),
		Confidence:             confidence(in),
	}
}

func reasoning(in Input, why []string) string {
	pos := fmt.Sprintf("Set %d", in.SetNumber)
	if in.TargetSets > 0 {
		pos = fmt.Sprintf("Set %d of %d", in.SetNumber, in.TargetSets)
	}
	if len(why) == 0 {
		return pos + ": standard rest."
	}
	return pos + ": " + strings.Join(why, "; ") + "."
}

// confidence grows with history size; missing RPE lowers it.
func confidence(in Input) float64 {
	n := len(in.History)
	var c float64
	if n < minHistoryForConfidence {
		c = 0.2 + 0.1*float64(n)
	} else {
		c = 0.5 + 0.05*float64(n-minHistoryForConfidence)
	}
	if c > 0.95 {
		c = 0.95
	}
	if in.RPE == nil {
		c -= 0.1
	}
	return c
}

func historicalRPE(in Input) (float64, bool) {
	var sum, n int
	for _, h := range in.History {
		if h.RPE != nil {
			sum += *h.RPE
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func historicalTopWeight(in Input) (float64, bool) {
	top, found := 0.0, false
	for _, h := range in.History {
		if h.WeightKg != nil && (!found || *h.WeightKg > top) {
			top, found = *h.WeightKg, true
		}
	}
	return top, found
}
