// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import "math"

const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// BM25 is an Okapi BM25 ranker over a fixed document corpus, ported from
// rank_bm25's BM25Okapi: idf is computed once at build time including its
// epsilon-clamp of negative idf terms (common for words that appear in more
// than half the corpus, which small ETL projects hit often), and Scores
// replays the standard per-term accumulation.
type BM25 struct {
	docLen    []int
	termFreq  []map[string]int
	idf       map[string]float64
	avgDocLen float64
}

// NewBM25 builds a BM25 index over docs. An empty corpus yields a BM25 whose
// Scores always returns an empty slice.
func NewBM25(docs [][]string) *BM25 {
	b := &BM25{
		termFreq: make([]map[string]int, len(docs)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		freq := make(map[string]int, len(doc))
		for _, tok := range doc {
			freq[tok]++
		}
		b.termFreq[i] = freq
		b.docLen = append(b.docLen, len(doc))
		totalLen += len(doc)
		for term := range freq {
			docFreq[term]++
		}
	}

	n := len(docs)
	if n > 0 {
		b.avgDocLen = float64(totalLen) / float64(n)
	}

	var idfSum float64
	var negativeTerms []string
	for term, freq := range docFreq {
		idf := math.Log(float64(n)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		b.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negativeTerms = append(negativeTerms, term)
		}
	}
	if len(b.idf) > 0 {
		avgIdf := idfSum / float64(len(b.idf))
		eps := bm25Epsilon * avgIdf
		for _, term := range negativeTerms {
			b.idf[term] = eps
		}
	}

	return b
}

// Scores returns one BM25 score per corpus document for the given query
// tokens. Query terms absent from the corpus vocabulary contribute zero.
func (b *BM25) Scores(query []string) []float64 {
	scores := make([]float64, len(b.termFreq))
	if len(scores) == 0 || b.avgDocLen == 0 {
		return scores
	}
	for _, term := range query {
		idf, ok := b.idf[term]
		if !ok {
			continue
		}
		for i, freq := range b.termFreq {
			f := float64(freq[term])
			denom := f + bm25K1*(1-bm25B+bm25B*float64(b.docLen[i])/b.avgDocLen)
			if denom == 0 {
				continue
			}
			scores[i] += idf * (f * (bm25K1 + 1)) / denom
		}
	}
	return scores
}
