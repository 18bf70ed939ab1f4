package sessions

import "time"

const (
	// DefaultWindow is the local session lifetime policy.
	DefaultWindow = 4 * time.Hour
	// DefaultRefreshThreshold is how close to the end of a session a refresh is due.
	DefaultRefreshThreshold = 5 * time.Minute
)

// Validator decides whether a session may be used. It combines the provider
// expiry and the local window with a logical AND; the two are never merged
// into one timestamp.
type Validator struct {
	window           time.Duration
	refreshThreshold time.Duration
	nowTime          func() time.Time
}

// ValidatorOption defines a function type to modify the Validator instance.
type ValidatorOption func(*Validator)

// WithWindow overrides the local session window duration.
func WithWindow(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.window = d
	}
}

// WithRefreshThreshold overrides the refresh threshold.
func WithRefreshThreshold(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.refreshThreshold = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowTime = nowFunc
	}
}

func NewValidator(options ...ValidatorOption) *Validator {
	v := &Validator{
		window:           DefaultWindow,
		refreshThreshold: DefaultRefreshThreshold,
		nowTime:          time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Window returns the configured local window duration.
func (v *Validator) Window() time.Duration {
	return v.window
}

// IsValid reports whether access should be granted.
//
// When no local window has been recorded yet the session is granted and the
// window starts now. A session restored after a long absence therefore gets a
// fresh window instead of inheriting its age; the start is never persisted
// server-side.
func (v *Validator) IsValid(s *Session, w WindowStore) bool {
	if s == nil {
		return false
	}
	now := v.nowTime()
	if s.ProviderExpired(now) {
		return false
	}

	start, ok := w.Start()
	if !ok {
		w.SetStart(now)
		return true
	}
	return now.Sub(start) < v.window
}

// TimeRemaining returns the smaller of the provider's remaining lifetime and
// the local window's remaining lifetime. It has no side effects and never
// returns a negative duration.
func (v *Validator) TimeRemaining(s *Session, w WindowStore) time.Duration {
	if s == nil {
		return 0
	}
	now := v.nowTime()

	remaining := v.window
	if start, ok := w.Start(); ok {
		remaining = v.window - now.Sub(start)
	}
	if s.HasExpiry() {
		if providerRemaining := s.Expiry().Sub(now); providerRemaining < remaining {
			remaining = providerRemaining
		}
	}

	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldRefresh is true when the session is still alive but ends within the
// refresh threshold (exclusive on both ends).
func (v *Validator) ShouldRefresh(s *Session, w WindowStore) bool {
	remaining := v.TimeRemaining(s, w)
	return remaining > 0 && remaining < v.refreshThreshold
}
