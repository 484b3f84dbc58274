package asi

import "testing"

func TestHypergeoKnownValue(t *testing.T) {
	got := Hypergeo(4, 60, 1, 7)
	want := 0.3993
	if diff := got - want; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("Hypergeo(4, 60, 1, 7) = %v, want %v +/- 1e-4", got, want)
	}
}

func TestHypergeoEdgeGuards(t *testing.T) {
	if got := Hypergeo(-1, 60, 1, 7); got != 0 {
		t.Fatalf("negative K should yield 0, got %v", got)
	}
	if got := Hypergeo(4, 60, 0, 7); got != 1 {
		t.Fatalf("n=0 should yield 1, got %v", got)
	}
	if got := Hypergeo(4, 60, 8, 7); got != 0 {
		t.Fatalf("n > draws should yield 0, got %v", got)
	}
	if got := Hypergeo(2, 60, 5, 7); got != 0 {
		t.Fatalf("K < n should yield 0, got %v", got)
	}
	if got := Hypergeo(4, 3, 1, 7); got != 0 {
		t.Fatalf("draws > N should yield 0, got %v", got)
	}
}

func TestCombSymmetryAndOverflowCap(t *testing.T) {
	if Comb(10, 3) != Comb(10, 7) {
		t.Fatalf("C(10,3) should equal C(10,7) by symmetry")
	}
	if got := Comb(200, 50); got != 0 {
		t.Fatalf("Comb should cap out past maxGammaArg, got %v", got)
	}
	if got := Comb(5, 0); got != 1 {
		t.Fatalf("Comb(n, 0) should be 1, got %v", got)
	}
	if got := Comb(5, 5); got != 1 {
		t.Fatalf("Comb(n, n) should be 1, got %v", got)
	}
}
