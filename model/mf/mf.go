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

package mf

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/c-bata/goptuna"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/meeple/base/encoding"
	"github.com/gorse-io/meeple/common/heap"
	"github.com/gorse-io/meeple/dataset"
	"github.com/gorse-io/meeple/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Pair is a (user, item) query.
type Pair struct {
	UserId string
	ItemId string
}

// Recommendation is an item with its predicted rating.
type Recommendation struct {
	ItemId string
	Score  float64
}

// FitResult records the training RMSE after every epoch.
type FitResult struct {
	Losses []float64
}

// MatrixFactorization is the biased latent factor model:
//
//	\hat r_{ui} = \mu + b_u + b_i + p_u^Tq_i
//
// trained by stochastic gradient descent. Predictions are clipped to [ClipLow, ClipHigh].
// If the user or the item was not seen during training, the prediction is \mu.
type MatrixFactorization struct {
	model.BaseModel
	// Model parameters
	UserIndex  *dataset.FreqDict
	ItemIndex  *dataset.FreqDict
	UserFactor [][]float64 // p_u
	ItemFactor [][]float64 // q_i
	UserBias   []float64   // b_u
	ItemBias   []float64   // b_i
	GlobalMean float64     // mu
	userRated  []mapset.Set[int]
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float64
	reg        float64
	initMean   float64
	initStdDev float64
	clipLow    float64
	clipHigh   float64
}

// New creates a matrix factorization model. Params:
//
//	NFactors    - The number of latent factors. Default is 8.
//	NEpochs     - The number of iteration of the SGD procedure. Default is 20.
//	Lr          - The learning rate of SGD. Default is 0.01.
//	Reg         - The regularization parameter of the cost function. Default is 0.02.
//	InitMean    - The mean of initial random latent factors. Default is 0.
//	InitStdDev  - The standard deviation of initial random latent factors. Default is 0.1.
//	RandomState - The seed of initialization and sample order. Default is 0.
//	ClipLow     - The lower bound of predictions. Default is 0.
//	ClipHigh    - The upper bound of predictions. Default is 10.
func New(params model.Params) *MatrixFactorization {
	m := new(MatrixFactorization)
	m.SetParams(params)
	return m
}

// SetParams sets hyper-parameters of the model.
func (m *MatrixFactorization) SetParams(params model.Params) {
	m.BaseModel.SetParams(params)
	m.nFactors = m.Params.GetInt(model.NFactors, 8)
	m.nEpochs = m.Params.GetInt(model.NEpochs, 20)
	m.lr = m.Params.GetFloat64(model.Lr, 0.01)
	m.reg = m.Params.GetFloat64(model.Reg, 0.02)
	m.initMean = m.Params.GetFloat64(model.InitMean, 0)
	m.initStdDev = m.Params.GetFloat64(model.InitStdDev, 0.1)
	m.clipLow = m.Params.GetFloat64(model.ClipLow, 0)
	m.clipHigh = m.Params.GetFloat64(model.ClipHigh, 10)
}

// SuggestParams samples hyper-parameters for a tuning trial.
func (m *MatrixFactorization) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors: lo.Must(trial.SuggestInt(string(model.NFactors), 1, 64)),
		model.Lr:       lo.Must(trial.SuggestLogFloat(string(model.Lr), 0.001, 0.1)),
		model.Reg:      lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 0.1)),
	}
}

// Clear removes all learned weights.
func (m *MatrixFactorization) Clear() {
	m.UserIndex = nil
	m.ItemIndex = nil
	m.UserFactor = nil
	m.ItemFactor = nil
	m.UserBias = nil
	m.ItemBias = nil
	m.GlobalMean = 0
	m.userRated = nil
}

// Fit trains the model from scratch. Invalid input is rejected before any epoch.
func (m *MatrixFactorization) Fit(trainSet *dataset.Dataset) (FitResult, error) {
	if trainSet == nil || trainSet.Len() == 0 {
		return FitResult{}, errors.NotValidf("empty training set")
	}
	if err := m.Params.Validate(); err != nil {
		return FitResult{}, errors.Trace(err)
	}
	if err := trainSet.Validate(); err != nil {
		return FitResult{}, errors.Trace(err)
	}
	m.Clear()
	m.ResetRandomGenerator()
	rng := m.GetRandomGenerator()
	// Build dense ids
	m.UserIndex = dataset.NewFreqDict()
	m.ItemIndex = dataset.NewFreqDict()
	users := make([]int, trainSet.Len())
	items := make([]int, trainSet.Len())
	ratings := make([]float64, trainSet.Len())
	for i, r := range trainSet.Ratings() {
		users[i] = m.UserIndex.Id(r.UserId)
		items[i] = m.ItemIndex.Id(r.ItemId)
		ratings[i] = r.Rating
	}
	m.userRated = make([]mapset.Set[int], m.UserIndex.Count())
	for i := range m.userRated {
		m.userRated[i] = mapset.NewThreadUnsafeSet[int]()
	}
	for i := range users {
		m.userRated[users[i]].Add(items[i])
	}
	// Initialize parameters
	m.GlobalMean = floats.Sum(ratings) / float64(len(ratings))
	m.UserBias = make([]float64, m.UserIndex.Count())
	m.ItemBias = make([]float64, m.ItemIndex.Count())
	m.UserFactor = rng.NormalMatrix(m.UserIndex.Count(), m.nFactors, m.initMean, m.initStdDev)
	m.ItemFactor = rng.NormalMatrix(m.ItemIndex.Count(), m.nFactors, m.initMean, m.initStdDev)
	m.Logger().Debug("fit matrix factorization",
		zap.Int("n_ratings", trainSet.Len()),
		zap.Int("n_users", m.UserIndex.Count()),
		zap.Int("n_items", m.ItemIndex.Count()),
		zap.String("params", m.Params.ToString()))
	// Optimize
	result := FitResult{Losses: make([]float64, 0, m.nEpochs)}
	buffer := make([]float64, m.nFactors)
	for epoch := 1; epoch <= m.nEpochs; epoch++ {
		for _, i := range rng.Perm(len(ratings)) {
			userIndex, itemIndex := users[i], items[i]
			userFactor := m.UserFactor[userIndex]
			itemFactor := m.ItemFactor[itemIndex]
			// Compute error: e_{ui} = r - \hat r
			diff := ratings[i] - m.internalPredict(userIndex, itemIndex)
			// Update biases: b <- b + \gamma (e_{ui} - \lambda b)
			m.UserBias[userIndex] += m.lr * (diff - m.reg*m.UserBias[userIndex])
			m.ItemBias[itemIndex] += m.lr * (diff - m.reg*m.ItemBias[itemIndex])
			// Update latent factors: p_u <- p_u + \gamma (e_{ui} q_i - \lambda p_u)
			copy(buffer, userFactor)
			floats.Scale(1-m.lr*m.reg, userFactor)
			floats.AddScaled(userFactor, m.lr*diff, itemFactor)
			floats.Scale(1-m.lr*m.reg, itemFactor)
			floats.AddScaled(itemFactor, m.lr*diff, buffer)
		}
		loss := m.trainingRMSE(users, items, ratings)
		result.Losses = append(result.Losses, loss)
		m.Logger().Debug("fit matrix factorization",
			zap.Int("epoch", epoch),
			zap.Int("n_epochs", m.nEpochs),
			zap.Float64("rmse", loss))
	}
	return result, nil
}

func (m *MatrixFactorization) trainingRMSE(users, items []int, ratings []float64) float64 {
	sum := 0.0
	for i := range ratings {
		diff := ratings[i] - m.clip(m.internalPredict(users[i], items[i]))
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(ratings)))
}

func (m *MatrixFactorization) internalPredict(userIndex, itemIndex int) float64 {
	return m.GlobalMean + m.UserBias[userIndex] + m.ItemBias[itemIndex] +
		floats.Dot(m.UserFactor[userIndex], m.ItemFactor[itemIndex])
}

func (m *MatrixFactorization) clip(score float64) float64 {
	return math.Max(m.clipLow, math.Min(m.clipHigh, score))
}

// Predict the rating given by a user to an item.
func (m *MatrixFactorization) Predict(userId, itemId string) float64 {
	if m.UserIndex == nil || m.ItemIndex == nil {
		return m.GlobalMean
	}
	userIndex, userExist := m.UserIndex.Index(userId)
	itemIndex, itemExist := m.ItemIndex.Index(itemId)
	if !userExist || !itemExist {
		return m.GlobalMean
	}
	return m.clip(m.internalPredict(userIndex, itemIndex))
}

// PredictPairs predicts ratings for every pair in order.
func (m *MatrixFactorization) PredictPairs(pairs []Pair) []float64 {
	return lo.Map(pairs, func(p Pair, _ int) float64 {
		return m.Predict(p.UserId, p.ItemId)
	})
}

// UserRecs recommends at most n items the user has not rated in training, ordered by
// descending predicted rating. Ties are ordered by item id.
func (m *MatrixFactorization) UserRecs(userId string, n int) []Recommendation {
	if n <= 0 || m.UserIndex == nil {
		return nil
	}
	userIndex, exist := m.UserIndex.Index(userId)
	if !exist {
		return nil
	}
	filter := heap.NewTopKFilter[string, float64](n)
	for itemIndex, itemId := range m.ItemIndex.Strings() {
		if m.userRated[userIndex].Contains(itemIndex) {
			continue
		}
		filter.Push(itemId, m.clip(m.internalPredict(userIndex, itemIndex)))
	}
	return lo.Map(filter.PopAll(), func(e heap.Elem[string, float64], _ int) Recommendation {
		return Recommendation{ItemId: e.Value, Score: e.Weight}
	})
}

// fileFormat heads every marshaled model.
const fileFormat = "meeple/mf/v1"

var _ model.Model = (*MatrixFactorization)(nil)

// Marshal model into byte stream.
func (m *MatrixFactorization) Marshal(w io.Writer) error {
	if m.UserIndex == nil || m.ItemIndex == nil {
		return errors.NotValidf("unfitted model")
	}
	if err := encoding.WriteString(w, fileFormat); err != nil {
		return errors.Trace(err)
	}
	// write params
	if err := encoding.WriteGob(w, m.Params); err != nil {
		return errors.Trace(err)
	}
	// write id dictionaries
	for _, dict := range []*dataset.FreqDict{m.UserIndex, m.ItemIndex} {
		if err := encoding.WriteGob(w, dict.Strings()); err != nil {
			return errors.Trace(err)
		}
		if err := encoding.WriteGob(w, dict.Freqs()); err != nil {
			return errors.Trace(err)
		}
	}
	// write rated items
	rated := lo.Map(m.userRated, func(s mapset.Set[int], _ int) []int { return s.ToSlice() })
	if err := encoding.WriteGob(w, rated); err != nil {
		return errors.Trace(err)
	}
	// write global mean and biases
	if err := binary.Write(w, binary.LittleEndian, m.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.ItemBias); err != nil {
		return errors.Trace(err)
	}
	// write latent factors
	if err := encoding.WriteMatrix(w, m.UserFactor); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, m.ItemFactor)
}

// Unmarshal model from byte stream.
func (m *MatrixFactorization) Unmarshal(r io.Reader) error {
	format, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if format != fileFormat {
		return errors.NotValidf("model format %q", format)
	}
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	m.SetParams(params)
	// read id dictionaries
	dicts := make([]*dataset.FreqDict, 2)
	for i := range dicts {
		var (
			strs []string
			cnts []int
		)
		if err := encoding.ReadGob(r, &strs); err != nil {
			return errors.Trace(err)
		}
		if err := encoding.ReadGob(r, &cnts); err != nil {
			return errors.Trace(err)
		}
		dicts[i] = dataset.NewFreqDictFromStrings(strs, cnts)
	}
	m.UserIndex, m.ItemIndex = dicts[0], dicts[1]
	// read rated items
	var rated [][]int
	if err := encoding.ReadGob(r, &rated); err != nil {
		return errors.Trace(err)
	}
	m.userRated = make([]mapset.Set[int], m.UserIndex.Count())
	for i := range m.userRated {
		m.userRated[i] = mapset.NewThreadUnsafeSet[int]()
		if i < len(rated) {
			m.userRated[i].Append(rated[i]...)
		}
	}
	// read global mean and biases
	if err := binary.Read(r, binary.LittleEndian, &m.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	m.UserBias = make([]float64, m.UserIndex.Count())
	if err := binary.Read(r, binary.LittleEndian, m.UserBias); err != nil {
		return errors.Trace(err)
	}
	m.ItemBias = make([]float64, m.ItemIndex.Count())
	if err := binary.Read(r, binary.LittleEndian, m.ItemBias); err != nil {
		return errors.Trace(err)
	}
	// read latent factors
	m.UserFactor = lo.Times(m.UserIndex.Count(), func(_ int) []float64 { return make([]float64, m.nFactors) })
	if err := encoding.ReadMatrix(r, m.UserFactor); err != nil {
		return errors.Trace(err)
	}
	m.ItemFactor = lo.Times(m.ItemIndex.Count(), func(_ int) []float64 { return make([]float64, m.nFactors) })
	return encoding.ReadMatrix(r, m.ItemFactor)
}
