// Copyright 2020 gorse Project Authors
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
package cv

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/meeple/dataset"
	"github.com/juju/errors"
)

// Fold is a train/test partition of a dataset.
type Fold struct {
	Index int
	Train *dataset.Dataset
	Test  *dataset.Dataset
}

// Split partitions data into k folds. Fold i tests the contiguous positions
// [i*⌊N/k⌋, (i+1)*⌊N/k⌋) and the last fold extends to the end of the dataset. The
// training set of a fold is every position outside its test range, so duplicated
// records outside the range stay in training. The dataset should be shuffled first.
func Split(data *dataset.Dataset, k int) ([]Fold, error) {
	if k <= 0 {
		return nil, errors.NotValidf("number of folds %d", k)
	}
	if data == nil || data.Len() == 0 {
		return nil, errors.NotValidf("empty dataset")
	}
	n := data.Len()
	if n < k {
		return nil, errors.NotValidf("%d ratings for %d folds", n, k)
	}
	foldSize := n / k
	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		begin, end := i*foldSize, (i+1)*foldSize
		if i == k-1 {
			end = n
		}
		mask := bitset.New(uint(n))
		for j := begin; j < end; j++ {
			mask.Set(uint(j))
		}
		test, train := data.Partition(mask)
		folds[i] = Fold{Index: i, Train: train, Test: test}
	}
	return folds, nil
}
