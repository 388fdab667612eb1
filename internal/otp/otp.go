package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultResendBurst    = 5
	DefaultResendInterval = time.Minute
)

// Error is a caller-facing OTP failure carrying the HTTP status to answer with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmailRequired   = &Error{http.StatusBadRequest, "Email is required"}
	ErrInvalidEmail    = &Error{http.StatusBadRequest, "Invalid email address"}
	ErrMissingFields   = &Error{http.StatusBadRequest, "Email and OTP required"}
	ErrNotFound        = &Error{http.StatusBadRequest, "OTP not found or expired"}
	ErrExpired         = &Error{http.StatusBadRequest, "OTP expired"}
	ErrInvalidCode     = &Error{http.StatusBadRequest, "Invalid OTP"}
	ErrTooManyRequests = &Error{http.StatusTooManyRequests, "Too many OTP requests, please try again later"}
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Record is the live code for one email address.
type Record struct {
	Code     string    `json:"otp"`
	IssuedAt time.Time `json:"timestamp"`
}

// Store keeps at most one record per email.
type Store interface {
	Save(ctx context.Context, email string, rec Record) error
	Get(ctx context.Context, email string) (Record, bool, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, email string) (bool, error)
}

// Notifier delivers a freshly issued code to its owner.
type Notifier interface {
	Notify(ctx context.Context, email, code string) error
}

type Options struct {
	TTL            time.Duration
	ResendBurst    int
	ResendInterval time.Duration
	Now            func() time.Time
}

type SendResult struct {
	Email string
	Code  string
}

// Service issues and verifies single-use email codes.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	resendLimit rate.Limit
	resendBurst int
	mu          sync.Mutex
	throttles   map[string]*rate.Limiter
}

func NewService(store Store, notifier Notifier, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ResendBurst <= 0 {
		opts.ResendBurst = DefaultResendBurst
	}
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = DefaultResendInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:       store,
		notifier:    notifier,
		logger:      log,
		ttl:         opts.TTL,
		now:         opts.Now,
		resendLimit: rate.Every(opts.ResendInterval),
		resendBurst: opts.ResendBurst,
		throttles:   make(map[string]*rate.Limiter),
	}
}

// Send issues a new code for email, replacing any live one. The address is
// matched as given; surrounding whitespace makes it invalid.
func (s *Service) Send(ctx context.Context, email string) (SendResult, error) {
	if email == "" {
		return SendResult{}, ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return SendResult{}, ErrInvalidEmail
	}
	// email outlives the request as a map key
	email = strings.Clone(email)
	if !s.throttle(email).AllowN(s.now(), 1) {
		return SendResult{}, ErrTooManyRequests
	}

	code, err := GenerateCode()
	if err != nil {
		return SendResult{}, err
	}

	if err := s.store.Save(ctx, email, Record{Code: code, IssuedAt: s.now()}); err != nil {
		return SendResult{}, fmt.Errorf("failed to store otp: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, email, code); err != nil {
			s.logger.Warn("OTP delivery failed", zap.String("email", email), zap.Error(err))
		}
	}

	s.logger.Info("OTP issued", zap.String("email", email))
	return SendResult{Email: email, Code: code}, nil
}

// Verify consumes the code for email. A wrong code leaves the record in place.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return ErrMissingFields
	}

	rec, ok, err := s.store.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load otp: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	if s.now().Sub(rec.IssuedAt) >= s.ttl {
		if _, err := s.store.Delete(ctx, email); err != nil {
			return fmt.Errorf("failed to delete otp: %w", err)
		}
		return ErrExpired
	}

	if rec.Code != code {
		return ErrInvalidCode
	}

	deleted, err := s.store.Delete(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	if !deleted {
		// consumed concurrently
		return ErrNotFound
	}

	s.logger.Info("OTP verified", zap.String("email", email))
	return nil
}

func (s *Service) throttle(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.throttles[email]
	if !ok {
		lim = rate.NewLimiter(s.resendLimit, s.resendBurst)
		s.throttles[email] = lim
	}
	return lim
}

// SweepThrottles forgets resend limiters that have refilled completely.
func (s *Service) SweepThrottles() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, lim := range s.throttles {
		if lim.TokensAt(now) >= float64(s.resendBurst) {
			delete(s.throttles, email)
			removed++
		}
	}
	return removed
}

// Run sweeps idle resend limiters every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepThrottles()
		}
	}
}

// TTL returns how long an issued code stays valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// GenerateCode returns a uniformly random code in 100000..999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
