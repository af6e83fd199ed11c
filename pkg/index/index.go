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

// Package index implements the four-level hierarchical entity index (§4.9):
// exact id lookup, exact name lookup, a BM25 index over each node's key
// metadata properties, and a second BM25 index over every property a node
// carries. A unified Search layers all four with fixed weights.
package index

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/metazcode/mzc/internal/metrics"
	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/model"
)

// Mode selects which level(s) of the index Search consults.
type Mode string

const (
	ModeID       Mode = "id"
	ModeName     Mode = "name"
	ModeMetadata Mode = "metadata"
	ModeContent  Mode = "content"
	ModeAll      Mode = "all"
)

// Result is one scored hit. Score is in [0, 1] for Mode Name/ID/All layers;
// SearchByMetadata/SearchByContent return raw (possibly >1) BM25-derived
// scores, matching the ported scoring scheme.
type Result struct {
	Node  *model.Node
	Score float64
}

// Config lets a subclass (see domain.go) extend which properties feed the
// metadata index and which extra tokens feed the content index, without
// duplicating Build's traversal logic.
type Config struct {
	// KeyProperties returns the key-property whitelist tokenized into the
	// metadata document for a node of the given kind. Defaults to
	// defaultKeyProperties.
	KeyProperties func(kind model.Kind) []string
	// ExtraMetadataTokens appends additional tokens to a node's metadata
	// document, e.g. business-logic properties on operation nodes.
	ExtraMetadataTokens func(node *model.Node) []string
	// ExtraContentTokens appends additional tokens to a node's content
	// document.
	ExtraContentTokens func(node *model.Node) []string
}

func (c *Config) keyProperties(kind model.Kind) []string {
	if c != nil && c.KeyProperties != nil {
		return c.KeyProperties(kind)
	}
	return defaultKeyProperties(kind)
}

func (c *Config) extraMetadataTokens(node *model.Node) []string {
	if c != nil && c.ExtraMetadataTokens != nil {
		return c.ExtraMetadataTokens(node)
	}
	return nil
}

func (c *Config) extraContentTokens(node *model.Node) []string {
	if c != nil && c.ExtraContentTokens != nil {
		return c.ExtraContentTokens(node)
	}
	return nil
}

// Index is a built, queryable hierarchical index over a fixed snapshot of
// graph nodes. It does not observe further writes to the graph it was built
// from; callers rebuild after ingestion or analysis changes the graph.
type Index struct {
	projectID string
	cfg       *Config

	allNodes []*model.Node

	idIndex   map[string]*model.Node
	nameIndex map[string][]*model.Node

	metadataDocs  [][]string
	metadataNodes []*model.Node
	metadataBM25  *BM25

	contentDocs  [][]string
	contentNodes []*model.Node
	contentBM25  *BM25
}

// Build reads every node out of client and constructs all four index
// levels. cfg may be nil to use the built-in (non-domain-aware) whitelist.
func Build(ctx context.Context, client graph.Client, cfg *Config) (*Index, error) {
	start := time.Now()
	nodes, err := client.GetAllNodes(ctx)
	if err != nil {
		metrics.RecordIndexBuild(0, err, time.Since(start))
		return nil, err
	}
	idx := BuildFromNodes(nodes, cfg)
	metrics.RecordIndexBuild(len(nodes), nil, time.Since(start))
	return idx, nil
}

// BuildFromNodes constructs an Index directly from an in-memory node slice,
// used by Build and by persist.go when reloading a sidecar without a live
// graph connection.
func BuildFromNodes(nodes []*model.Node, cfg *Config) *Index {
	idx := &Index{
		cfg:       cfg,
		allNodes:  nodes,
		idIndex:   make(map[string]*model.Node, len(nodes)),
		nameIndex: make(map[string][]*model.Node),
	}

	for _, n := range nodes {
		idx.idIndex[n.ID] = n

		if name := strings.ToLower(strings.TrimSpace(n.Name)); name != "" {
			idx.nameIndex[name] = append(idx.nameIndex[name], n)
		}

		metaTokens := idx.extractMetadataTokens(n)
		idx.metadataDocs = append(idx.metadataDocs, metaTokens)
		idx.metadataNodes = append(idx.metadataNodes, n)

		contentTokens := idx.extractContentTokens(n)
		idx.contentDocs = append(idx.contentDocs, contentTokens)
		idx.contentNodes = append(idx.contentNodes, n)
	}

	idx.metadataBM25 = NewBM25(idx.metadataDocs)
	idx.contentBM25 = NewBM25(idx.contentDocs)

	return idx
}

// SetProjectID tags this index with the project it was built for; purely
// informational, surfaced by Stats and the persistence sidecar.
func (idx *Index) SetProjectID(id string) { idx.projectID = id }

// ProjectID returns the tag set by SetProjectID, or "" if unset.
func (idx *Index) ProjectID() string { return idx.projectID }

// Nodes returns every node this index was built from.
func (idx *Index) Nodes() []*model.Node { return idx.allNodes }

// SearchByID is Level 1: exact id lookup, O(1).
func (idx *Index) SearchByID(id string) *model.Node {
	return idx.idIndex[id]
}

// SearchByName is Level 2: exact, case-insensitive, trimmed name lookup. A
// name may resolve to more than one node.
func (idx *Index) SearchByName(name string) []*model.Node {
	return idx.nameIndex[strings.ToLower(strings.TrimSpace(name))]
}

// SearchByMetadata is Level 3: BM25 fuzzy search over each node's
// key-property whitelist, admitted by the 10%/70% dynamic threshold (§4.9).
func (idx *Index) SearchByMetadata(query string, topK int) []Result {
	return bm25Search(query, idx.metadataBM25, idx.metadataDocs, idx.metadataNodes, topK, 0.10, 0.30)
}

// SearchByContent is Level 4: BM25 full-text search over every property a
// node carries, admitted by the 5%/20% dynamic threshold.
func (idx *Index) SearchByContent(query string, topK int) []Result {
	return bm25Search(query, idx.contentBM25, idx.contentDocs, idx.contentNodes, topK, 0.05, 0.20)
}

// Search is the unified entry point: id (1.0) then name (0.9) then metadata
// scaled by 0.8 then content scaled by 0.6, deduplicated by node id and
// truncated to topK. Modes other than "all" delegate to the matching level
// directly, at that level's native score.
func (idx *Index) Search(query string, mode Mode, topK int) []Result {
	start := time.Now()
	defer func() { metrics.RecordSearch(string(mode), time.Since(start)) }()
	switch mode {
	case ModeID:
		if n := idx.SearchByID(query); n != nil {
			return []Result{{Node: n, Score: 1.0}}
		}
		return nil
	case ModeName:
		matches := idx.SearchByName(query)
		if len(matches) > topK {
			matches = matches[:topK]
		}
		out := make([]Result, len(matches))
		for i, n := range matches {
			out[i] = Result{Node: n, Score: 0.9}
		}
		return out
	case ModeMetadata:
		return idx.SearchByMetadata(query, topK)
	case ModeContent:
		return idx.SearchByContent(query, topK)
	case ModeAll, "":
		return idx.searchAll(query, topK)
	default:
		return nil
	}
}

func (idx *Index) searchAll(query string, topK int) []Result {
	var results []Result
	seen := make(map[string]struct{})

	if n := idx.SearchByID(query); n != nil {
		results = append(results, Result{Node: n, Score: 1.0})
		seen[n.ID] = struct{}{}
	}

	for _, n := range idx.SearchByName(query) {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		results = append(results, Result{Node: n, Score: 0.9})
		seen[n.ID] = struct{}{}
	}

	if len(results) < topK {
		for _, r := range idx.SearchByMetadata(query, (topK-len(results))*2) {
			if _, ok := seen[r.Node.ID]; ok || len(results) >= topK {
				continue
			}
			results = append(results, Result{Node: r.Node, Score: r.Score * 0.8})
			seen[r.Node.ID] = struct{}{}
		}
	}

	if len(results) < topK {
		for _, r := range idx.SearchByContent(query, (topK-len(results))*2) {
			if _, ok := seen[r.Node.ID]; ok || len(results) >= topK {
				continue
			}
			results = append(results, Result{Node: r.Node, Score: r.Score * 0.6})
			seen[r.Node.ID] = struct{}{}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// bm25Search implements the dynamic-threshold scoring scheme shared by
// SearchByMetadata and SearchByContent: positiveFactor gates positive-score
// corpora (score >= max*positiveFactor, floor 0.001); negativeRangeFactor
// gates all-non-positive corpora (score >= min + range*negativeRangeFactor).
// If every score is exactly zero, documents that share at least one query
// term with the query get the 0.001 sentinel score instead of being dropped.
func bm25Search(query string, bm25 *BM25, docs [][]string, nodes []*model.Node, topK int, positiveFactor, negativeRangeFactor float64) []Result {
	if bm25 == nil || len(docs) == 0 {
		return nil
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := bm25.Scores(tokens)
	if len(scores) == 0 {
		return nil
	}

	maxScore, minScore := scores[0], scores[0]
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
		if s < minScore {
			minScore = s
		}
	}

	if maxScore == 0 {
		queryTerms := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			queryTerms[t] = struct{}{}
		}
		var matches []Result
		for i, doc := range docs {
			if containsAny(doc, queryTerms) {
				matches = append(matches, Result{Node: nodes[i], Score: 0.001})
			}
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Node.ID < matches[j].Node.ID })
		if len(matches) > topK {
			matches = matches[:topK]
		}
		return matches
	}

	var threshold float64
	if maxScore > 0 {
		threshold = maxScore * positiveFactor
		if threshold < 0.001 {
			threshold = 0.001
		}
	} else {
		scoreRange := maxScore - minScore
		if scoreRange > 0 {
			threshold = minScore + scoreRange*negativeRangeFactor
		} else {
			threshold = maxScore
		}
	}

	var results []Result
	for i, s := range scores {
		if s < threshold {
			continue
		}
		normalized := s
		if maxScore <= 0 {
			normalized = s - minScore + 0.001
		} else if normalized < 0.001 {
			normalized = 0.001
		}
		results = append(results, Result{Node: nodes[i], Score: normalized})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func containsAny(doc []string, terms map[string]struct{}) bool {
	for _, t := range doc {
		if _, ok := terms[t]; ok {
			return true
		}
	}
	return false
}

// defaultKeyProperties is the key-property whitelist tokenized into the
// metadata document for a node of the given kind.
func defaultKeyProperties(kind model.Kind) []string {
	switch kind {
	case model.KindPipeline:
		return []string{"technology", "file_path", "execution_context"}
	case model.KindOperation:
		return []string{"native_type", "operation_subtype", "technology"}
	case model.KindTable:
		return []string{"schema", "table_type", "technology", "columns"}
	case model.KindConnection:
		return []string{"connection_type", "technology", "server", "database"}
	case model.KindParameter:
		return []string{"data_type", "scope", "description", "value"}
	case model.KindVariable:
		return []string{"data_type", "scope", "namespace", "expression"}
	case model.KindDirectory:
		return []string{"path", "technology"}
	case model.KindFile:
		return []string{"file_type", "technology", "path"}
	case model.KindDataAsset:
		return []string{"asset_type", "technology", "format"}
	case model.KindSchema:
		return []string{"database", "technology"}
	case model.KindColumn:
		return []string{"data_type", "table", "nullable"}
	case model.KindEntity:
		return []string{"entity_type", "technology"}
	case model.KindTransformation:
		return []string{"transformation_type", "technology", "logic"}
	case model.KindOperationSummary, model.KindPipelineSummary:
		return []string{"summary_text", "original_node_type", "confidence"}
	default:
		return []string{"technology", "type"}
	}
}

// isSummaryKind reports whether kind ends in "_summary", the marker that
// triggers the weighted summary-content handling in both extractors.
func isSummaryKind(kind model.Kind) bool {
	return strings.HasSuffix(string(kind), "_summary")
}

// extractMetadataTokens builds the Level 3 document for node: its name and
// kind, the key-property whitelist for its kind (checked against both
// Properties and the traceability Context), operation business-logic
// properties, and — for summary nodes — doubled-weight business content.
func (idx *Index) extractMetadataTokens(node *model.Node) []string {
	var tokens []string
	tokens = append(tokens, Tokenize(node.Name)...)
	tokens = append(tokens, Tokenize(string(node.Kind))...)

	for _, prop := range idx.cfg.keyProperties(node.Kind) {
		if v, ok := node.Properties[prop]; ok {
			tokens = append(tokens, tokenizeAny(v)...)
		}
		if prop == "technology" && node.Context != nil && node.Context.Technology != "" {
			tokens = append(tokens, Tokenize(node.Context.Technology)...)
		}
		if node.Context != nil {
			if v, ok := node.Context.ContextInfo[prop]; ok {
				tokens = append(tokens, tokenizeAny(v)...)
			}
		}
	}

	if node.Kind == model.KindOperation {
		for _, prop := range []string{"transformations", "conditions", "lookups", "embedded_scripts"} {
			if v, ok := node.Properties[prop]; ok {
				tokens = append(tokens, extractTokensFromAny(v)...)
			}
		}
	}

	if isSummaryKind(node.Kind) {
		for _, prop := range []string{
			"summary_text", "business_purpose", "technical_summary",
			"data_flow_description", "impact_analysis", "business_context",
		} {
			if v, ok := node.Properties[prop]; ok {
				summaryTokens := tokenizeAny(v)
				tokens = append(tokens, summaryTokens...)
				tokens = append(tokens, summaryTokens...) // double weight
			}
		}
	}

	tokens = append(tokens, idx.cfg.extraMetadataTokens(node)...)
	return tokens
}

var summaryHighPriorityProps = []string{"summary_text", "business_purpose", "technical_summary"}
var summaryMediumPriorityProps = []string{"data_flow_description", "impact_analysis", "business_context", "key_transformations"}

// extractContentTokens builds the Level 4 document for node: kind, id, name,
// and — for ordinary nodes — every property and nested value; summary nodes
// instead weight their summary fields 3x/2x before falling through to the
// remaining properties at normal weight. Context.ContextInfo is always
// appended at normal weight.
func (idx *Index) extractContentTokens(node *model.Node) []string {
	var tokens []string
	tokens = append(tokens, Tokenize(string(node.Kind))...)
	tokens = append(tokens, Tokenize(node.ID)...)
	tokens = append(tokens, Tokenize(node.Name)...)

	if isSummaryKind(node.Kind) {
		weighted := make(map[string]struct{})
		for _, prop := range summaryHighPriorityProps {
			weighted[prop] = struct{}{}
			if v, ok := node.Properties[prop]; ok {
				t := tokenizeAny(v)
				tokens = append(tokens, t...)
				tokens = append(tokens, t...)
				tokens = append(tokens, t...)
			}
		}
		for _, prop := range summaryMediumPriorityProps {
			weighted[prop] = struct{}{}
			if v, ok := node.Properties[prop]; ok {
				t := tokenizeAny(v)
				tokens = append(tokens, t...)
				tokens = append(tokens, t...)
			}
		}
		remaining := make(map[string]any)
		for k, v := range node.Properties {
			if _, skip := weighted[k]; !skip {
				remaining[k] = v
			}
		}
		tokens = append(tokens, extractTokensFromDict(remaining)...)
	} else if node.Properties != nil {
		tokens = append(tokens, extractTokensFromDict(node.Properties)...)
	}

	if node.Context != nil && node.Context.ContextInfo != nil {
		tokens = append(tokens, extractTokensFromDict(node.Context.ContextInfo)...)
	}

	tokens = append(tokens, idx.cfg.extraContentTokens(node)...)
	return tokens
}

// extractTokensFromDict recursively tokenizes a property map: every key
// plus its value, descending into nested maps and slices.
func extractTokensFromDict(data map[string]any) []string {
	var tokens []string
	for k, v := range data {
		tokens = append(tokens, Tokenize(k)...)
		tokens = append(tokens, extractTokensFromAny(v)...)
	}
	return tokens
}

func extractTokensFromAny(v any) []string {
	switch t := v.(type) {
	case map[string]any:
		return extractTokensFromDict(t)
	case []map[string]any:
		var tokens []string
		for _, item := range t {
			tokens = append(tokens, extractTokensFromDict(item)...)
		}
		return tokens
	case []any:
		var tokens []string
		for _, item := range t {
			tokens = append(tokens, extractTokensFromAny(item)...)
		}
		return tokens
	case []string:
		var tokens []string
		for _, item := range t {
			tokens = append(tokens, Tokenize(item)...)
		}
		return tokens
	default:
		return tokenizeAny(v)
	}
}

// Stats summarizes this index, mirroring the ported implementation's
// get_stats().
type Stats struct {
	ProjectID          string
	NodeCount          int
	UniqueNames        int
	MetadataDocuments  int
	ContentDocuments   int
	BM25MetadataReady  bool
	BM25ContentReady   bool
}

func (idx *Index) Stats() Stats {
	return Stats{
		ProjectID:         idx.projectID,
		NodeCount:         len(idx.idIndex),
		UniqueNames:       len(idx.nameIndex),
		MetadataDocuments: len(idx.metadataDocs),
		ContentDocuments:  len(idx.contentDocs),
		BM25MetadataReady: idx.metadataBM25 != nil,
		BM25ContentReady:  idx.contentBM25 != nil,
	}
}
