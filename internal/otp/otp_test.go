package otp

import (
	"context"
	"strconv"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingNotifier struct {
	sent map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, email, code string) error {
	n.sent[email] = code
	return nil
}

func newTestService() (*Service, *MemoryStore, *fakeClock, *recordingNotifier) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	notifier := &recordingNotifier{sent: make(map[string]string)}
	svc := NewService(store, notifier, zap.NewNop(), Options{Now: clock.Now})
	return svc, store, clock, notifier
}

func TestSendIssuesSixDigitCode(t *testing.T) {
	svc, store, _, notifier := newTestService()
	ctx := context.Background()

	res, err := svc.Send(ctx, "alice@example.com")
	require.NoError(t, err)

	n, err := strconv.Atoi(res.Code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 100000)
	assert.LessOrEqual(t, n, 999999)
	assert.Equal(t, res.Code, notifier.sent["alice@example.com"])

	rec, ok, _ := store.Get(ctx, "alice@example.com")
	require.True(t, ok)
	assert.Equal(t, res.Code, rec.Code)
}

func TestSendValidatesEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	for _, email := range []string{"alice", "alice@example", "al ice@example.com", "@example.com", " alice@example.com", "alice@example.com\n", "   "} {
		_, err := svc.Send(ctx, email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

func TestSendOverwritesPreviousCode(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "bob@example.com")
	require.NoError(t, err)
	second, err := svc.Send(ctx, "bob@example.com")
	require.NoError(t, err)

	rec, _, _ := store.Get(ctx, "bob@example.com")
	assert.Equal(t, second.Code, rec.Code)
	assert.Equal(t, 1, store.Len())
}

func TestSendThrottlesResend(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryStore(), nil, nil, Options{
		Now:            clock.Now,
		ResendBurst:    2,
		ResendInterval: time.Minute,
	})
	ctx := context.Background()

	_, err := svc.Send(ctx, "carol@example.com")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "carol@example.com")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "carol@example.com")
	assert.ErrorIs(t, err, ErrTooManyRequests)

	_, err = svc.Send(ctx, "dave@example.com")
	assert.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.Send(ctx, "carol@example.com")
	assert.NoError(t, err)
}

func TestVerifyIsSingleUse(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Send(ctx, "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "alice@example.com", res.Code))
	assert.ErrorIs(t, svc.Verify(ctx, "alice@example.com", res.Code), ErrNotFound)
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, store, clock, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Send(ctx, "alice@example.com")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	assert.ErrorIs(t, svc.Verify(ctx, "alice@example.com", res.Code), ErrExpired)
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, svc.Verify(ctx, "alice@example.com", res.Code), ErrNotFound)
}

func TestVerifyJustBeforeExpiry(t *testing.T) {
	svc, _, clock, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Send(ctx, "alice@example.com")
	require.NoError(t, err)

	clock.Advance(5*time.Minute - time.Millisecond)
	assert.NoError(t, svc.Verify(ctx, "alice@example.com", res.Code))
}

func TestVerifyMismatchKeepsRecord(t *testing.T) {
	svc, _, clock, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Send(ctx, "alice@example.com")
	require.NoError(t, err)

	wrong := "000000"
	assert.ErrorIs(t, svc.Verify(ctx, "alice@example.com", wrong), ErrInvalidCode)

	clock.Advance(time.Minute)
	assert.NoError(t, svc.Verify(ctx, "alice@example.com", res.Code))
}

func TestVerifyRequiresBothFields(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Verify(ctx, "", "123456"), ErrMissingFields)
	assert.ErrorIs(t, svc.Verify(ctx, "alice@example.com", ""), ErrMissingFields)
	assert.ErrorIs(t, svc.Verify(ctx, "nobody@example.com", "123456"), ErrNotFound)
}

func TestSweepThrottles(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryStore(), nil, nil, Options{
		Now:            clock.Now,
		ResendBurst:    1,
		ResendInterval: time.Minute,
	})

	_, err := svc.Send(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, svc.SweepThrottles())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, svc.SweepThrottles())
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, "old@example.com", Record{Code: "111111", IssuedAt: now.Add(-6 * time.Minute)}))
	require.NoError(t, store.Save(ctx, "new@example.com", Record{Code: "222222", IssuedAt: now.Add(-time.Minute)}))

	assert.Equal(t, 1, store.Sweep(now, DefaultTTL))
	_, ok, _ := store.Get(ctx, "new@example.com")
	assert.True(t, ok)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.NotEqual(t, byte('0'), code[0])
	}
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "****56", MaskCode("123456"))
	assert.Equal(t, "12", MaskCode("12"))
}

// aliased returns a string sharing buf's memory, as fasthttp hands out.
func aliased(buf []byte) string {
	return unsafe.String(&buf[0], len(buf))
}

func TestSendCopiesEmailKey(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	buf := []byte("alice@example.com")
	res, err := svc.Send(ctx, aliased(buf))
	require.NoError(t, err)

	copy(buf, "carol@example.com")

	assert.Equal(t, "alice@example.com", res.Email)
	require.NoError(t, svc.Verify(ctx, "alice@example.com", res.Code))
}
