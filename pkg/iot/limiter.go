package iot

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterStore manages per-device rate limiters: device name -> rate limiter
type RateLimiterStore struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewRateLimiterStore(defaultRate rate.Limit, defaultBurst int) *RateLimiterStore {
	return &RateLimiterStore{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *RateLimiterStore) GetLimiter(deviceName string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[deviceName]
	if !exists {
		limiter = rate.NewLimiter(s.defaultRate, s.defaultBurst)
		s.limiters[deviceName] = limiter
	}
	return limiter
}

func (s *RateLimiterStore) SetLimiter(deviceName string, deviceRate rate.Limit, deviceBurst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[deviceName] = rate.NewLimiter(deviceRate, deviceBurst)
}

// Allow takes a token for deviceName. A nil store lets everything through.
func (s *RateLimiterStore) Allow(deviceName string) bool {
	if s == nil {
		return true
	}
	return s.GetLimiter(deviceName).Allow()
}
