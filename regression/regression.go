// Package regression fits an affine model y = a + b*x to a set of points by
// ordinary least squares, reporting the coefficient of determination (R²)
// so a caller can judge goodness of fit.
package regression

// Fit is the result of a least-squares affine fit: y = a + b*x.
type Fit struct {
	A, B     float64
	RSquared float64
}

// FitLinear computes the least-squares affine fit of y against x. Returns
// ok=false if x and y have mismatched or insufficient (<2) length, or if x
// is constant (no slope is determinable).
func FitLinear(x, y []float64) (fit Fit, ok bool) {
	n := len(x)
	if n < 2 || n != len(y) {
		return Fit{}, false
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}

	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	denom := sumX2 - float64(n)*meanX*meanX
	if denom == 0 {
		return Fit{}, false
	}

	b := (sumXY - float64(n)*meanX*meanY) / denom
	a := meanY - b*meanX

	predicted := make([]float64, n)
	for i := 0; i < n; i++ {
		predicted[i] = a + b*x[i]
	}

	return Fit{A: a, B: b, RSquared: rSquared(y, predicted)}, true
}

// rSquared reports the coefficient of determination of predicted against
// observed: 1 - SS_res/SS_tot. When observed has no variance to explain,
// the fit is perfect if predicted reproduces it exactly and worthless
// otherwise.
func rSquared(observed, predicted []float64) float64 {
	mean := mean(observed)

	var ssTot, ssRes float64
	for i := range observed {
		d := observed[i] - mean
		ssTot += d * d

		r := observed[i] - predicted[i]
		ssRes += r * r
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1.0
		}
		return 0
	}

	return 1.0 - ssRes/ssTot
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
