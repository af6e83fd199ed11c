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

package ssis

import (
	"bytes"

	"github.com/antchfx/xmlquery"
)

// parseXML turns decoded package bytes into a navigable document, returning
// the root element rather than the document node xmlquery.Parse produces —
// every caller in this package addresses DTS:/SQLTask: attributes and
// relative child paths straight off the document's root element. SSIS XML
// always declares the DTS/SQLTask prefixes used throughout this package's
// XPath expressions, so no namespace remapping is needed.
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

// dtsProperty looks up a direct child `DTS:Property[@DTS:Name='name']` and
// returns its text, or "" if absent.
func dtsProperty(n *xmlquery.Node, name string) string {
	prop := xmlquery.FindOne(n, "DTS:Property[@DTS:Name='"+name+"']")
	if prop == nil {
		return ""
	}
	return prop.InnerText()
}

// findProperty looks up a <property name="name"> element inside n's direct
// <properties> child (used for the un-namespaced dataflow component XML).
func findProperty(n *xmlquery.Node, name string) *xmlquery.Node {
	return xmlquery.FindOne(n, "properties/property[@name='"+name+"']")
}

func propertyText(n *xmlquery.Node, name string) string {
	prop := findProperty(n, name)
	if prop == nil {
		return ""
	}
	return prop.InnerText()
}

func attr(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	return n.SelectAttr(name)
}
