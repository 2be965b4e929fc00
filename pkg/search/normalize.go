package search

// SumNormalize divides every score by the sum of all scores.
func SumNormalize(scores []float64) ([]float64, error) {
	var total float64
	for _, s := range scores {
		total += s
	}
	if len(scores) == 0 || total == 0 {
		return nil, &DivisionByZeroError{Operation: "sum normalize"}
	}
	return scaleBy(scores, total), nil
}

// MaxNormalize divides every score by the largest score.
func MaxNormalize(scores []float64) ([]float64, error) {
	if len(scores) == 0 {
		return nil, &DivisionByZeroError{Operation: "max normalize"}
	}
	peak := scores[0]
	for _, s := range scores[1:] {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return nil, &DivisionByZeroError{Operation: "max normalize"}
	}
	return scaleBy(scores, peak), nil
}

func scaleBy(scores []float64, denominator float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s / denominator
	}
	return out
}
