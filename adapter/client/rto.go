package client

import (
	"math"
	"sync"
	"time"
)

const (
	initRTO          = time.Second
	initSrttFactor   = 1.0 / 8.0
	initRttvarFactor = 1.0 / 4.0
	rtoFactor        = 4.0
	minRTO           = 10 * time.Millisecond
)

// rtoEstimator smoothed retransmission timeout, RFC 6298
type rtoEstimator struct {
	mu     sync.Mutex
	srtt   float64
	rttvar float64
	rto    time.Duration
	max    time.Duration
}

func newRTOEstimator(max time.Duration) *rtoEstimator {
	return &rtoEstimator{
		rto: initRTO,
		max: max,
	}
}

func (e *rtoEstimator) get() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rto
}

// update must only be fed with samples of frames acknowledged on the first attempt
func (e *rtoEstimator) update(rtt time.Duration) (srtt, rttvar float64, rto time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := float64(rtt)
	if e.srtt == 0 {
		e.srtt = r
		e.rttvar = r / 2
	} else {
		e.rttvar = (1-initRttvarFactor)*e.rttvar + initRttvarFactor*math.Abs(e.srtt-r)
		e.srtt = (1-initSrttFactor)*e.srtt + initSrttFactor*r
	}

	e.rto = e.clamp(time.Duration(e.srtt + rtoFactor*e.rttvar))

	return e.srtt, e.rttvar, e.rto
}

// backoff timeout of the given retransmission attempt
func (e *rtoEstimator) backoff(rto time.Duration, factor float64, attempt int) time.Duration {
	if attempt == 0 || factor <= 1 {
		return e.clamp(rto)
	}
	return e.clamp(time.Duration(float64(rto) * math.Pow(factor, float64(attempt))))
}

func (e *rtoEstimator) clamp(d time.Duration) time.Duration {
	if d < minRTO {
		d = minRTO
	}
	if e.max > 0 && d > e.max {
		d = e.max
	}
	return d
}
