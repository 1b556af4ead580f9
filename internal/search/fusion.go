package search

import (
	"sort"

	"github.com/vellumsearch/vellum/internal/store"
)

// fused is one section's combined ranking state.
type fused struct {
	sectionID  int64
	documentID int64
	title      string
	highlight  string
	score      float64
	vectorRank int
	textRank   int
}

// fuseRRF combines the two channel rankings with Reciprocal Rank Fusion:
//
//	score(s) = alpha/(k + rank_vec(s)) + (1-alpha)/(k + rank_txt(s))
//
// A section absent from a channel contributes nothing for that term. The
// result is sorted by score descending with section id ascending as the
// deterministic tie-break.
func fuseRRF(vec []store.VectorHit, txt []store.LexicalHit, alpha float64, k int) []fused {
	byID := make(map[int64]*fused, len(vec)+len(txt))

	for i, h := range vec {
		rank := i + 1
		byID[h.SectionID] = &fused{
			sectionID:  h.SectionID,
			documentID: h.DocumentID,
			title:      h.Title,
			score:      alpha / float64(k+rank),
			vectorRank: rank,
		}
	}
	for i, h := range txt {
		rank := i + 1
		f, ok := byID[h.SectionID]
		if !ok {
			f = &fused{sectionID: h.SectionID}
			byID[h.SectionID] = f
		}
		f.textRank = rank
		f.highlight = h.Highlight
		f.score += (1 - alpha) / float64(k+rank)
	}

	out := make([]fused, 0, len(byID))
	for _, f := range byID {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].sectionID < out[j].sectionID
	})
	return out
}

// singleVector shapes a vector-only result list; ranks are 1..N.
func singleVector(vec []store.VectorHit) []fused {
	out := make([]fused, len(vec))
	for i, h := range vec {
		out[i] = fused{
			sectionID:  h.SectionID,
			documentID: h.DocumentID,
			title:      h.Title,
			score:      h.Similarity,
			vectorRank: i + 1,
		}
	}
	return out
}

// singleText shapes a fulltext-only result list; ranks are 1..N.
func singleText(txt []store.LexicalHit) []fused {
	out := make([]fused, len(txt))
	for i, h := range txt {
		out[i] = fused{
			sectionID: h.SectionID,
			highlight: h.Highlight,
			score:     h.RankScore,
			textRank:  i + 1,
		}
	}
	return out
}
