/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/unicode/norm"
)

// SplitGraphemes splits text into user-perceived characters. The text is
// NFC-normalized first so decomposed accents merge with their base letter;
// emoji sequences and remaining combining marks stay in one cluster.
func SplitGraphemes(text string) []string {
	text = norm.NFC.String(text)
	if text == "" {
		return nil
	}
	var seg segmenter.Segmenter
	seg.Init([]rune(text))
	it := seg.GraphemeIterator()
	var out []string
	for it.Next() {
		out = append(out, string(it.Grapheme().Text))
	}
	return out
}
