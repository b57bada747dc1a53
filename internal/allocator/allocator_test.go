package allocator

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lunamall/lunamall/internal/domain"
)

// fixedSource returns a scripted sequence of draw values.
type fixedSource struct {
	values []int64
	i      int
}

func (f *fixedSource) Int63n(n int64) int64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v % n
}

func pool() []domain.PrizeCandidate {
	return []domain.PrizeCandidate{
		{ID: 1, Name: "5 points", Type: domain.PrizePoints, Weight: 50, RemainingStock: domain.UnboundedStock, Active: true},
		{ID: 2, Name: "coupon", Type: domain.PrizeVirtual, Weight: 30, RemainingStock: 10, Active: true},
		{ID: 3, Name: "headphones", Type: domain.PrizePhysical, Weight: 5, RemainingStock: 1, Active: true},
		{ID: 4, Name: "thanks", Type: domain.PrizeThankYou, Weight: 15, RemainingStock: domain.UnboundedStock, Active: true},
	}
}

func TestSelect_BoundaryMapping(t *testing.T) {
	// Cumulative bands in ascending id order: [0,50) [50,80) [80,85) [85,100).
	tests := []struct {
		draw   int64
		wantID int64
	}{
		{0, 1},
		{49, 1},
		{50, 2},
		{79, 2},
		{80, 3},
		{84, 3},
		{85, 4},
		{99, 4},
	}
	for _, tt := range tests {
		got, err := Select(pool(), &fixedSource{values: []int64{tt.draw}})
		if err != nil {
			t.Fatalf("Select(draw=%d) error: %v", tt.draw, err)
		}
		if got.ID != tt.wantID {
			t.Errorf("Select(draw=%d) = candidate %d, want %d", tt.draw, got.ID, tt.wantID)
		}
	}
}

func TestSelect_ExhaustedNeverWins(t *testing.T) {
	// The heaviest candidate has zero stock; it must never be selected and
	// its weight must not dilute the others.
	candidates := []domain.PrizeCandidate{
		{ID: 1, Name: "jackpot", Weight: 1000, RemainingStock: 0, Active: true},
		{ID: 2, Name: "small", Weight: 1, RemainingStock: 5, Active: true},
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		got, err := Select(candidates, rng)
		if err != nil {
			t.Fatalf("Select() error: %v", err)
		}
		if got.ID == 1 {
			t.Fatal("out-of-stock candidate was selected")
		}
	}
}

func TestSelect_InactiveAndZeroWeightFiltered(t *testing.T) {
	candidates := []domain.PrizeCandidate{
		{ID: 1, Weight: 100, RemainingStock: 5, Active: false},
		{ID: 2, Weight: 0, RemainingStock: 5, Active: true},
		{ID: 3, Weight: 1, RemainingStock: 5, Active: true},
	}
	got, err := Select(candidates, &fixedSource{values: []int64{0}})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if got.ID != 3 {
		t.Errorf("Select() = candidate %d, want 3", got.ID)
	}
}

func TestSelect_Exhausted(t *testing.T) {
	candidates := []domain.PrizeCandidate{
		{ID: 1, Weight: 10, RemainingStock: 0, Active: true},
		{ID: 2, Weight: 10, RemainingStock: 3, Active: false},
	}
	_, err := Select(candidates, &fixedSource{values: []int64{0}})
	if !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
}

func TestSelect_UnsortedInput(t *testing.T) {
	// Bands are assigned in ascending id order regardless of slice order.
	candidates := pool()
	candidates[0], candidates[3] = candidates[3], candidates[0]
	got, err := Select(candidates, &fixedSource{values: []int64{0}})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("Select(draw=0) = candidate %d, want 1", got.ID)
	}
}

func TestSelect_Distribution(t *testing.T) {
	// With weights 50/30/5/15 over 10k draws the observed shares should land
	// near the expected ones. Loose tolerance keeps this deterministic for
	// the fixed seed without being flaky if the seed changes.
	rng := rand.New(rand.NewSource(42))
	counts := map[int64]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		got, err := Select(pool(), rng)
		if err != nil {
			t.Fatalf("Select() error: %v", err)
		}
		counts[got.ID]++
	}
	want := map[int64]float64{1: 0.50, 2: 0.30, 3: 0.05, 4: 0.15}
	for id, share := range want {
		got := float64(counts[id]) / n
		if got < share-0.03 || got > share+0.03 {
			t.Errorf("candidate %d share = %.3f, want ~%.2f", id, got, share)
		}
	}
}

func TestExcluding(t *testing.T) {
	out := Excluding(pool(), 3)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for _, c := range out {
		if c.ID == 3 {
			t.Fatal("excluded candidate still present")
		}
	}
}
