// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

// FreqDict maps strings to dense ids and counts occurrences.
type FreqDict struct {
	si  map[string]int
	is  []string
	cnt []int
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[string]int{}, []string{}, []int{}}
	return
}

// NewFreqDictFromStrings rebuilds a dictionary from its id-ordered strings and counts.
func NewFreqDictFromStrings(is []string, cnt []int) *FreqDict {
	d := &FreqDict{si: make(map[string]int, len(is)), is: is, cnt: cnt}
	for i, s := range is {
		d.si[s] = i
	}
	if len(d.cnt) < len(d.is) {
		d.cnt = append(d.cnt, make([]int, len(d.is)-len(d.cnt))...)
	}
	return d
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the id of s, adding it if absent, and increases its count.
func (d *FreqDict) Id(s string) (y int) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// Index looks up the id of s without modifying the dictionary.
func (d *FreqDict) Index(s string) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *FreqDict) String(id int) (s string, ok bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

// Strings returns all strings ordered by id.
func (d *FreqDict) Strings() []string {
	return d.is
}

// Freqs returns all counts ordered by id.
func (d *FreqDict) Freqs() []int {
	return d.cnt
}
