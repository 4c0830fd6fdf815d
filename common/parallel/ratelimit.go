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

package parallel

import (
	"context"
	"time"

	"github.com/juju/ratelimit"
)

type RateLimiter interface {
	Take(count int64) time.Duration
}

type Unlimited struct{}

func (n *Unlimited) Take(count int64) time.Duration {
	return 0
}

// NewRateLimiter creates a limiter allowing rpm requests per minute with a burst of one.
// Non-positive rpm means unlimited.
func NewRateLimiter(rpm int) RateLimiter {
	if rpm <= 0 {
		return &Unlimited{}
	}
	return ratelimit.NewBucketWithRate(float64(rpm)/60, 1)
}

// Wait takes one token from the limiter and sleeps until it is available.
func Wait(ctx context.Context, limiter RateLimiter) error {
	d := limiter.Take(1)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
