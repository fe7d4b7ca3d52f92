package task

import (
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
)

// Base delays per task family. Payout retries back off from 5s so a flapping
// payment gateway is not hammered; everything else uses a shorter base.
var baseDelays = map[string]time.Duration{
	"escrow:payout": 5 * time.Second,
	"kyc:verify":    10 * time.Second,
}

const defaultBaseDelay = 3 * time.Second

// RetryDelay computes delay = base * 2^(n-1) with up to 10% jitter so
// concurrent retries of the same failure do not stampede the upstream.
func RetryDelay(n int, _ error, t *asynq.Task) time.Duration {
	base, ok := baseDelays[t.Type()]
	if !ok {
		base = defaultBaseDelay
	}

	if n < 1 {
		n = 1
	}

	delay := base << uint(n-1)
	jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
	return delay + jitter
}
