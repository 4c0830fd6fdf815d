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

package translate

import (
	"maps"
	"slices"

	"github.com/gorse-io/meeple/base/json"
	"github.com/gorse-io/meeple/model/mf"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Names maps item ids to display names.
type Names map[string]string

// Named is a recommendation with the display name of its item.
type Named struct {
	ItemId string  `json:"item_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// LoadNames reads a JSON object of item ids to names.
func LoadNames(path string) (Names, error) {
	names := make(Names)
	if err := json.ReadFile(path, &names); err != nil {
		return nil, errors.Trace(err)
	}
	if names == nil {
		names = make(Names)
	}
	return names, nil
}

// Save writes the names as a JSON object.
func (names Names) Save(path string) error {
	return json.WriteFile(path, map[string]string(names))
}

// Translate attaches names to recommendations. Unknown items get an empty name.
func (names Names) Translate(recs []mf.Recommendation) []Named {
	return lo.Map(recs, func(rec mf.Recommendation, _ int) Named {
		return Named{ItemId: rec.ItemId, Name: names[rec.ItemId], Score: rec.Score}
	})
}

// Missing returns the distinct ids without a name, sorted.
func (names Names) Missing(ids []string) []string {
	missing := lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		_, ok := names[id]
		return !ok
	}))
	slices.Sort(missing)
	return missing
}

// Merge adds or replaces names and returns the number of entries that changed.
func (names Names) Merge(other map[string]string) int {
	changed := 0
	for _, id := range slices.Sorted(maps.Keys(other)) {
		if current, ok := names[id]; !ok || current != other[id] {
			names[id] = other[id]
			changed++
		}
	}
	return changed
}
