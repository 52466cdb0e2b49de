// Copyright © 2026 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var chunkifyRegexp = regexp.MustCompile(`(\d+|\D+)`)

func chunkify(s string) []string {
	return chunkifyRegexp.FindAllString(s, -1)
}

// AlphanumCompare compares two strings in natural order, so that "team9"
// sorts before "team10". Runs of digits are compared by their value, and
// everything else byte-wise.
func AlphanumCompare(a, b string) int {
	chunksA, chunksB := chunkify(a), chunkify(b)

	for i := 0; i < len(chunksA) && i < len(chunksB); i++ {
		x, y := chunksA[i], chunksB[i]

		xInt, xErr := strconv.Atoi(x)
		yInt, yErr := strconv.Atoi(y)

		var cmp int
		if xErr == nil && yErr == nil {
			cmp = xInt - yInt
		} else {
			cmp = strings.Compare(x, y)
		}

		if cmp != 0 {
			return cmp
		}
	}

	// One is a prefix of the other, the shorter one comes first.
	return len(chunksA) - len(chunksB)
}

// AlphanumSort sorts the given strings in natural order.
func AlphanumSort(s []string) {
	slices.SortStableFunc(s, AlphanumCompare)
}
