package ingest

import (
	"strings"

	"github.com/seanblong/docchat/pkg/models"
)

// Dedupe removes near-duplicate chunks by lexical overlap. It is a greedy,
// order-dependent pass: each candidate is compared against every already-kept
// chunk and discarded on the first match above the threshold. Surviving
// chunks keep their original order and Index values (gaps allowed). O(n²).
func Dedupe(chunks []models.Chunk) []models.Chunk {
	kept := make([]models.Chunk, 0, len(chunks))
	keptTokens := make([]tokenSet, 0, len(chunks))

	for _, c := range chunks {
		candidate := strings.Fields(strings.ToLower(c.Text))
		duplicate := false
		for _, ts := range keptTokens {
			if similarity(candidate, ts) > 0.8 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
			keptTokens = append(keptTokens, newTokenSet(c.Text))
		}
	}
	return kept
}

type tokenSet struct {
	members map[string]struct{}
	count   int // token count of the kept text, before set collapse
}

func newTokenSet(text string) tokenSet {
	tokens := strings.Fields(strings.ToLower(text))
	members := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		members[t] = struct{}{}
	}
	return tokenSet{members: members, count: len(tokens)}
}

// similarity counts candidate tokens (with repeats) that appear anywhere in
// the kept token set, over the longer of the two token lists.
func similarity(candidate []string, kept tokenSet) float64 {
	if len(candidate) == 0 || kept.count == 0 {
		return 0
	}
	common := 0
	for _, t := range candidate {
		if _, ok := kept.members[t]; ok {
			common++
		}
	}
	denom := len(candidate)
	if kept.count > denom {
		denom = kept.count
	}
	return float64(common) / float64(denom)
}
