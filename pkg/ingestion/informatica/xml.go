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

package informatica

import (
	"bytes"

	"github.com/antchfx/xmlquery"
)

// parseXML turns decoded PowerCenter export bytes into a navigable document,
// returning its root element. PowerCenter XML carries no namespace prefixes,
// unlike SSIS's DTS:/SQLTask: elements, so every XPath expression in this
// package addresses bare element names.
func parseXML(decoded []byte) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, err
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c, nil
		}
	}
	return doc, nil
}

func attr(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	return n.SelectAttr(name)
}

// tableAttribute looks up a <TABLEATTRIBUTE NAME="name"> child's VALUE
// attribute, the shape PowerCenter uses for per-transformation configuration
// (join condition, lookup SQL override, expression text, ...).
func tableAttribute(n *xmlquery.Node, name string) string {
	ta := xmlquery.FindOne(n, "TABLEATTRIBUTE[@NAME='"+name+"']")
	if ta == nil {
		return ""
	}
	return attr(ta, "VALUE")
}
