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

import (
	"math/rand"
	"os"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/meeple/base/json"
	"github.com/gorse-io/meeple/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rating is a single user rating of an item.
type Rating struct {
	UserId string  `json:"user_id" validate:"required"`
	ItemId string  `json:"item_id" validate:"required"`
	Rating float64 `json:"rating" validate:"gte=0,lte=10"`
}

// ItemStat summarizes the ratings of an item.
type ItemStat struct {
	Count     int
	MaxRating float64
}

// Dataset is an ordered sequence of ratings. Operations return new datasets and never
// modify the receiver.
type Dataset struct {
	ratings []Rating
}

// NewDataset creates a dataset from ratings. The slice is not copied.
func NewDataset(ratings []Rating) *Dataset {
	return &Dataset{ratings: ratings}
}

// IsInvalidInput reports whether err was caused by invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, errors.NotValid)
}

// Validate checks every record of the dataset.
func (d *Dataset) Validate() error {
	for i := range d.ratings {
		if err := validate.Struct(&d.ratings[i]); err != nil {
			return errors.NewNotValid(err, "invalid rating record "+strconv.Itoa(i))
		}
	}
	return nil
}

func (d *Dataset) Len() int {
	return len(d.ratings)
}

// Ratings returns the underlying records. Callers must not modify them.
func (d *Dataset) Ratings() []Rating {
	return d.ratings
}

// Filter returns the ratings satisfying pred, keeping their order.
func (d *Dataset) Filter(pred func(r Rating) bool) *Dataset {
	return NewDataset(lo.Filter(d.ratings, func(r Rating, _ int) bool {
		return pred(r)
	}))
}

// Shuffle returns a permuted copy of the dataset.
func (d *Dataset) Shuffle(rng *rand.Rand) *Dataset {
	ratings := make([]Rating, len(d.ratings))
	for i, j := range rng.Perm(len(d.ratings)) {
		ratings[i] = d.ratings[j]
	}
	return NewDataset(ratings)
}

// Partition splits the dataset by position: ratings whose position is set in mask go to
// in, the rest go to out.
func (d *Dataset) Partition(mask *bitset.BitSet) (in, out *Dataset) {
	n := int(mask.Count())
	inRatings := make([]Rating, 0, n)
	outRatings := make([]Rating, 0, max(len(d.ratings)-n, 0))
	for i, r := range d.ratings {
		if mask.Test(uint(i)) {
			inRatings = append(inRatings, r)
		} else {
			outRatings = append(outRatings, r)
		}
	}
	return NewDataset(inRatings), NewDataset(outRatings)
}

// Concat returns a dataset with the ratings of d followed by the ratings of other.
func (d *Dataset) Concat(other *Dataset) *Dataset {
	ratings := make([]Rating, 0, d.Len()+other.Len())
	ratings = append(ratings, d.ratings...)
	ratings = append(ratings, other.ratings...)
	return NewDataset(ratings)
}

// Mean returns the mean rating, or 0 for an empty dataset.
func (d *Dataset) Mean() float64 {
	if len(d.ratings) == 0 {
		return 0
	}
	return lo.SumBy(d.ratings, func(r Rating) float64 { return r.Rating }) / float64(len(d.ratings))
}

// ItemStats counts the ratings of every item and finds their maximum.
func (d *Dataset) ItemStats() map[string]ItemStat {
	stats := make(map[string]ItemStat)
	for _, r := range d.ratings {
		stat, exist := stats[r.ItemId]
		if !exist || r.Rating > stat.MaxRating {
			stat.MaxRating = r.Rating
		}
		stat.Count++
		stats[r.ItemId] = stat
	}
	return stats
}

// Users returns the distinct user ids in order of first appearance.
func (d *Dataset) Users() []string {
	return lo.Uniq(lo.Map(d.ratings, func(r Rating, _ int) string { return r.UserId }))
}

// Items returns the distinct item ids in order of first appearance.
func (d *Dataset) Items() []string {
	return lo.Uniq(lo.Map(d.ratings, func(r Rating, _ int) string { return r.ItemId }))
}

// Deduplicate resolves repeated (user, item) pairs: the last rating wins and takes the
// position of the first occurrence. It returns the new dataset and the number of records
// dropped.
func (d *Dataset) Deduplicate() (*Dataset, int) {
	type key struct{ user, item string }
	positions := make(map[key]int, len(d.ratings))
	ratings := make([]Rating, 0, len(d.ratings))
	for _, r := range d.ratings {
		k := key{r.UserId, r.ItemId}
		if pos, ok := positions[k]; ok {
			ratings[pos] = r
			continue
		}
		positions[k] = len(ratings)
		ratings = append(ratings, r)
	}
	return NewDataset(ratings), len(d.ratings) - len(ratings)
}

// Read decodes and validates a JSON array of ratings.
func Read(data []byte) (*Dataset, error) {
	var ratings []Rating
	if err := json.Unmarshal(data, &ratings); err != nil {
		return nil, errors.NewNotValid(err, "malformed ratings")
	}
	d := NewDataset(ratings)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reads a ratings file and resolves duplicated pairs.
func Load(path string, logger *zap.Logger) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	d, err := Read(data)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	d, dropped := d.Deduplicate()
	log.OrNop(logger).Info("load ratings",
		zap.String("path", path),
		zap.Int("n_ratings", d.Len()),
		zap.Int("n_duplicates", dropped))
	return d, nil
}

// Save writes the ratings as a JSON array.
func (d *Dataset) Save(path string) error {
	if d.ratings == nil {
		return json.WriteFile(path, []Rating{})
	}
	return json.WriteFile(path, d.ratings)
}
