package similarity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		shouldErr bool
	}{
		{name: "default config", cfg: DefaultConfig(), shouldErr: false},
		{name: "threshold too low", cfg: Config{Threshold: -0.1, MaxCandidates: 10}, shouldErr: true},
		{name: "threshold too high", cfg: Config{Threshold: 1.1, MaxCandidates: 10}, shouldErr: true},
		{name: "zero max candidates", cfg: Config{Threshold: 0.85, MaxCandidates: 0}, shouldErr: true},
		{name: "max candidates too large", cfg: Config{Threshold: 0.85, MaxCandidates: 20000}, shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CURATOR_DUP_THRESHOLD", "0.9")
	t.Setenv("CURATOR_DUP_MAX_CANDIDATES", "100")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.Equal(t, 100, cfg.MaxCandidates)

	t.Setenv("CURATOR_DUP_THRESHOLD", "not-a-number")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestCompareIdenticalSignature(t *testing.T) {
	// Identity over full-credit attributes only: author/species/gender are
	// unset on both sides and drop out of the denominator.
	sig := Signature{
		ID:    "img-1",
		URL:   "https://img.example/a.png",
		Tags:  []string{"fantasy", "portrait", "armor"},
		Style: "digital painting",
	}
	assert.Equal(t, 1.0, Compare(sig, sig))

	engine := NewEngine(DefaultConfig())
	engine.AddSignature(sig)

	result := engine.CheckDuplicate(sig)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, 1.0, result.Similarity)
	assert.Equal(t, "img-1", result.MatchID)
}

func TestCompareFullyPopulatedIdentity(t *testing.T) {
	// With every attribute populated, the half-credit attributes cap the
	// score at 7.5/9. This is the intended asymmetry: author, species and
	// gender corroborate but never certify.
	sig := Signature{
		ID:      "img-1",
		URL:     "https://img.example/a.png",
		Tags:    []string{"fantasy", "portrait"},
		Author:  "artist",
		Style:   "oil",
		Species: "elf",
		Gender:  "female",
	}
	assert.InDelta(t, 7.5/9.0, Compare(sig, sig), 1e-9)

	engine := NewEngine(DefaultConfig())
	engine.AddSignature(sig)
	result := engine.CheckDuplicate(Signature{
		ID:      "img-2",
		URL:     sig.URL,
		Tags:    sig.Tags,
		Author:  sig.Author,
		Style:   sig.Style,
		Species: sig.Species,
		Gender:  sig.Gender,
	})
	assert.False(t, result.IsDuplicate)
}

func TestComparePipelineShapeIdentity(t *testing.T) {
	// The analyzer builds signatures without an author or style; identical
	// url/tags plus matching species and gender lands at 6/7, just above
	// the default threshold.
	a := Signature{
		ID:      "img-1",
		URL:     "https://img.example/a.png",
		Tags:    []string{"fantasy", "portrait"},
		Species: "elf",
		Gender:  "female",
	}
	b := a
	b.ID = "img-2"

	sim := Compare(a, b)
	assert.InDelta(t, 6.0/7.0, sim, 1e-9)
	assert.GreaterOrEqual(t, sim, DefaultConfig().Threshold)
}

func TestCompareThresholdBoundary(t *testing.T) {
	// URL match contributes 2/5; tag Jaccard of 0.75 lands exactly on the
	// 0.85 threshold, 0.5 lands well below.
	base := Signature{
		ID:   "stored",
		URL:  "https://img.example/a.png",
		Tags: []string{"t1", "t2", "t3", "t4"},
	}

	tests := []struct {
		name      string
		tags      []string
		wantSim   float64
		duplicate bool
	}{
		{name: "exactly on threshold", tags: []string{"t1", "t2", "t3"}, wantSim: 0.85, duplicate: true},
		{name: "below threshold", tags: []string{"t1", "t2"}, wantSim: 0.70, duplicate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(DefaultConfig())
			engine.AddSignature(base)

			result := engine.CheckDuplicate(Signature{
				ID:   "candidate",
				URL:  base.URL,
				Tags: tt.tags,
			})
			assert.InDelta(t, tt.wantSim, result.Similarity, 1e-9)
			assert.Equal(t, tt.duplicate, result.IsDuplicate)
		})
	}
}

func TestCompareNoComparableAttributes(t *testing.T) {
	a := Signature{ID: "a", URL: "https://img.example/a.png"}
	b := Signature{ID: "b", Tags: []string{"fantasy"}}
	assert.Equal(t, 0.0, Compare(a, b))
}

func TestJaccardOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{name: "identical", a: []string{"x", "y"}, b: []string{"x", "y"}, want: 1.0},
		{name: "disjoint", a: []string{"x"}, b: []string{"y"}, want: 0.0},
		{name: "partial overlap", a: []string{"x", "y"}, b: []string{"y", "z"}, want: 1.0 / 3.0},
		{name: "case insensitive", a: []string{"Fantasy", "PORTRAIT"}, b: []string{"fantasy", "portrait"}, want: 1.0},
		{name: "duplicate entries collapse", a: []string{"x", "x", "y"}, b: []string{"x", "y"}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, jaccardOverlap(tt.a, tt.b), 1e-9)
		})
	}
}

func TestStoreOperations(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	assert.Equal(t, 0, engine.Count())

	engine.AddSignature(Signature{ID: "a", URL: "https://img.example/a.png"})
	engine.AddSignature(Signature{ID: "b", URL: "https://img.example/b.png"})
	assert.Equal(t, 2, engine.Count())

	// Same ID overwrites silently
	engine.AddSignature(Signature{ID: "a", URL: "https://img.example/a2.png"})
	assert.Equal(t, 2, engine.Count())

	// Missing ID is ignored
	engine.AddSignature(Signature{URL: "https://img.example/c.png"})
	assert.Equal(t, 2, engine.Count())

	assert.True(t, engine.RemoveSignature("a"))
	assert.False(t, engine.RemoveSignature("a"))
	assert.Equal(t, 1, engine.Count())

	engine.Clear()
	assert.Equal(t, 0, engine.Count())
}

func TestCheckBatchOrderSensitivity(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	first := Signature{
		ID:    "batch-1",
		URL:   "https://img.example/same.png",
		Tags:  []string{"fantasy", "portrait"},
		Style: "digital",
	}
	second := first
	second.ID = "batch-2"
	unrelated := Signature{
		ID:   "batch-3",
		URL:  "https://img.example/other.png",
		Tags: []string{"scifi", "landscape"},
	}

	results := engine.CheckBatch([]Signature{first, second, unrelated})
	require.Len(t, results, 3)

	assert.False(t, results["batch-1"].IsDuplicate)
	assert.True(t, results["batch-2"].IsDuplicate)
	assert.Equal(t, "batch-1", results["batch-2"].MatchID)
	assert.False(t, results["batch-3"].IsDuplicate)

	// Non-duplicates were appended to the corpus during the pass
	assert.Equal(t, 2, engine.Count())
}

func TestCheckBatchIntraBatchOverride(t *testing.T) {
	// Neither candidate matches the stored corpus, but they match each
	// other; the later item is marked a duplicate of the earlier one.
	engine := NewEngine(DefaultConfig())
	engine.AddSignature(Signature{
		ID:   "stored",
		URL:  "https://img.example/stored.png",
		Tags: []string{"existing"},
	})

	a := Signature{ID: "cand-a", URL: "https://img.example/x.png", Tags: []string{"t1", "t2"}, Style: "ink"}
	b := a
	b.ID = "cand-b"

	results := engine.CheckBatch([]Signature{a, b})
	assert.False(t, results["cand-a"].IsDuplicate)
	assert.True(t, results["cand-b"].IsDuplicate)
	assert.Equal(t, "cand-a", results["cand-b"].MatchID)
}

func TestCheckBatchSkipsMissingIDs(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	results := engine.CheckBatch([]Signature{
		{URL: "https://img.example/no-id.png"},
		{ID: "ok", URL: "https://img.example/ok.png"},
	})
	assert.Len(t, results, 1)
	assert.Contains(t, results, "ok")
}

func TestCheckDuplicateReportsGlobalMaximum(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	for i := 0; i < 5; i++ {
		engine.AddSignature(Signature{
			ID:   fmt.Sprintf("stored-%d", i),
			URL:  fmt.Sprintf("https://img.example/%d.png", i),
			Tags: []string{fmt.Sprintf("tag-%d", i), "common"},
		})
	}

	// Shares one of two tags with every stored signature but a URL with
	// none; no comparison reaches the threshold.
	result := engine.CheckDuplicate(Signature{
		ID:   "candidate",
		URL:  "https://img.example/new.png",
		Tags: []string{"common", "fresh"},
	})
	assert.False(t, result.IsDuplicate)
	assert.Greater(t, result.Similarity, 0.0)
	assert.NotEmpty(t, result.MatchID)
	assert.Less(t, result.Similarity, DefaultConfig().Threshold)
}
