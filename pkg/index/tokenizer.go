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

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var delimiterPattern = regexp.MustCompile(`[\s_\-./\\:;,()\[\]{}]+`)

// Tokenize splits camelCase/PascalCase boundaries first, lowercases, then
// splits on whitespace and the common punctuation delimiters, dropping
// tokens shorter than two characters. Duplicates are preserved so BM25 term
// frequency stays meaningful.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	lowered := strings.ToLower(b.String())
	fields := delimiterPattern.Split(lowered, -1)

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokenizeAny stringifies an arbitrary property value before tokenizing it.
// Properties arrive as map[string]any from JSON-like node/edge payloads, so
// this is the single point every extractor funnels through.
func tokenizeAny(v any) []string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return Tokenize(s)
	}
	return Tokenize(fmt.Sprintf("%v", v))
}
