// Package asi implements the Archetype Similarity Index: a bigram-based
// scoring engine that ranks archetypes by the hypergeometric joint draw
// probability of shared card pairs.
package asi

import "math"

// maxGammaArg caps the arguments passed to Comb's gamma-function
// evaluation. Go's math.Gamma overflows to +Inf well past this, and the
// reference implementation treats such inputs as a clean zero rather
// than propagating an overflowed float.
const maxGammaArg = 170

// Comb computes the (real-valued) binomial coefficient C(n, k) via the
// gamma function, so fractional mean-copy counts from the trainer can be
// plugged in directly. Matches the edge guards in the design: 0 for
// k > n >= 1 (with n, k both non-negative reals), 1 for k == 0 or k == n.
func Comb(n, k float64) float64 {
	if k > n && n >= 1 {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	if n > maxGammaArg || k > maxGammaArg {
		return 0
	}
	return math.Gamma(n+1) / (math.Gamma(k+1) * math.Gamma(n-k+1))
}

// Hypergeo computes the hypergeometric probability of drawing at least
// successes copies in draws draws from a population of size n
// containing k copies.
//
//	Hypergeo(K, N, n, d) = sum_{i=n..d} C(K, i)*C(N-K, d-i) / C(N, d)
//
// Edge guards, applied before the sum: returns 0 if any of K, N, d, n is
// negative, or d > N, or K < n, or n > d; returns 1 if n == 0; returns 0
// if n or K exceeds the overflow cap used by Comb.
func Hypergeo(k, n float64, successes, draws int) float64 {
	if k < 0 || n < 0 || draws < 0 || successes < 0 {
		return 0
	}
	if float64(draws) > n || k < float64(successes) || successes > draws {
		return 0
	}
	if successes == 0 {
		return 1
	}

	// Comb itself guards the overflow cap (n or k > maxGammaArg) for each
	// term below, returning 0 rather than an overflowed float.
	denom := Comb(n, float64(draws))
	if denom == 0 {
		return 0
	}

	total := 0.0
	for i := successes; i <= draws; i++ {
		total += Comb(k, float64(i)) * Comb(n-k, float64(draws-i)) / denom
	}
	return total
}
