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
package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/errors"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	Lr          ParamName = "Lr"          // learning rate
	Reg         ParamName = "Reg"         // regularization strength
	NEpochs     ParamName = "NEpochs"     // number of epochs
	NFactors    ParamName = "NFactors"    // number of factors
	RandomState ParamName = "RandomState" // random state (seed)
	InitMean    ParamName = "InitMean"    // mean of gaussian initial parameter
	InitStdDev  ParamName = "InitStdDev"  // standard deviation of gaussian initial parameter
	ClipLow     ParamName = "ClipLow"     // lower bound of predictions
	ClipHigh    ParamName = "ClipHigh"    // upper bound of predictions
)

// Params stores hyper-parameters for an model. It is a map between strings
// (names) and interface{}s (values). For example, hyper-parameters for matrix
// factorization is given by:
//
//	model.Params{
//		model.Lr:       0.01,
//		model.NEpochs:  20,
//		model.NFactors: 8,
//		model.Reg:      0.02,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int64:
			return int(val)
		}
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		}
	}
	return _default
}

// GetFloat64 gets a float parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case float32:
			return float64(val)
		case int:
			return float64(val)
		}
	}
	return _default
}

// Overwrite returns a copy of parameters with every value in params applied on top.
func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// Validate checks the types and ranges of known hyper-parameters.
func (parameters Params) Validate() error {
	for name, val := range parameters {
		switch name {
		case NFactors, NEpochs:
			n, ok := val.(int)
			if !ok || n <= 0 {
				return errors.NotValidf("%s = %v, expect a positive integer", name, val)
			}
		case RandomState:
			switch val.(type) {
			case int, int64:
			default:
				return errors.NotValidf("%s = %v, expect an integer", name, val)
			}
		case Lr, Reg, InitMean, InitStdDev, ClipLow, ClipHigh:
			switch val.(type) {
			case float64, float32, int:
			default:
				return errors.NotValidf("%s = %v, expect a number", name, val)
			}
		}
	}
	if low, high := parameters.GetFloat64(ClipLow, 0), parameters.GetFloat64(ClipHigh, 10); low > high {
		return errors.NotValidf("clip range [%v, %v]", low, high)
	}
	return nil
}

func (parameters Params) ToString() string {
	names := make([]string, 0, len(parameters))
	for name := range parameters {
		names = append(names, string(name))
	}
	sort.Strings(names)
	var builder strings.Builder
	for i, name := range names {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(fmt.Sprintf("%s=%v", name, parameters[ParamName(name)]))
	}
	return builder.String()
}
