package utils

import "math"

func RoundWithTwoDecimalPlace(f float64) float64 {
	if f == 0 {
		return 0
	}

	return math.Round(f*100) / 100
}

// SafeDivide retorna num/den, ou zero quando o denominador é zero
func SafeDivide(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return num / den
}

// IsFinite indica se o valor é um float utilizável (nem NaN nem infinito)
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
