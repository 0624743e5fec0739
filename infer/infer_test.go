package infer

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/threadsift/comment"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestEmailYouTubeAlwaysGmail(t *testing.T) {
	rng := testRand()
	for range 50 {
		got := Email("Some User_99", comment.PlatformYouTube, rng)
		if got != "someuser99@gmail.com" {
			t.Fatalf("Email(youtube) = %q, want someuser99@gmail.com", got)
		}
	}
}

func TestEmailSanitizesUsername(t *testing.T) {
	rng := testRand()
	got := Email("Sam_22!", comment.PlatformReddit, rng)
	local, _, ok := strings.Cut(got, "@")
	if !ok {
		t.Fatalf("Email() = %q, not an address", got)
	}
	if local != "sam22" {
		t.Errorf("local part = %q, want sam22", local)
	}
}

func TestEmailDomainMembership(t *testing.T) {
	known := make(map[string]bool)
	for _, d := range priorityDomains {
		known[d] = true
	}
	for _, d := range otherDomains {
		known[d] = true
	}

	rng := testRand()
	for range 200 {
		got := Email("user", comment.PlatformFacebook, rng)
		_, domain, _ := strings.Cut(got, "@")
		if !known[domain] {
			t.Fatalf("Email() produced unknown domain %q", domain)
		}
	}
}

func TestEmailDomainWeighting(t *testing.T) {
	priority := make(map[string]bool)
	for _, d := range priorityDomains {
		priority[d] = true
	}

	rng := testRand()
	const n = 20000
	var hits int
	for range n {
		got := Email("user", comment.PlatformReddit, rng)
		_, domain, _ := strings.Cut(got, "@")
		if priority[domain] {
			hits++
		}
	}

	share := float64(hits) / n
	if share < 0.72 || share > 0.78 {
		t.Errorf("priority-domain share = %.3f over %d draws, want ~0.75", share, n)
	}
}

func TestConfidenceRange(t *testing.T) {
	rng := testRand()
	seen := make(map[int]bool)
	for range 2000 {
		c := Confidence(rng)
		if c < ConfidenceMin || c > ConfidenceMax {
			t.Fatalf("Confidence() = %d, want within [%d,%d]", c, ConfidenceMin, ConfidenceMax)
		}
		seen[c] = true
	}
	if !seen[ConfidenceMin] || !seen[ConfidenceMax] {
		t.Errorf("Confidence() never hit a bound over 2000 draws: min=%v max=%v", seen[ConfidenceMin], seen[ConfidenceMax])
	}
}
