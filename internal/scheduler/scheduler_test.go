package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/clock"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	"github.com/smallbiznis/parcella/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type overdueInvoices struct {
	invoicedomain.Service
	items []invoicedomain.Invoice
	err   error
	asOf  []time.Time
	block bool

	// overdue invoices beyond items, as when the listing is capped
	unlisted int
}

func (o *overdueInvoices) ListOverdue(ctx context.Context, asOf time.Time) (invoicedomain.OverdueSummary, error) {
	o.asOf = append(o.asOf, asOf)
	if o.block {
		<-ctx.Done()
		return invoicedomain.OverdueSummary{}, ctx.Err()
	}
	if o.err != nil {
		return invoicedomain.OverdueSummary{}, o.err
	}
	var out []invoicedomain.Invoice
	for _, inv := range o.items {
		if inv.Overdue(asOf) {
			out = append(out, inv)
		}
	}
	count := len(out)
	if count > 0 {
		count += o.unlisted
	}
	return invoicedomain.OverdueSummary{Count: count, Invoices: out}, nil
}

type deniedLocker struct{ attempts int }

func (d *deniedLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	d.attempts++
	return "", false, nil
}

func (d *deniedLocker) Release(ctx context.Context, key, token string) error { return nil }

func newTestScheduler(t *testing.T, invoices *overdueInvoices, clk clock.Clock, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		InvoiceSvc: invoices,
		Clock:      clk,
		Locker:     ratelimit.NewLocker(nil),
		Config:     cfg,
	})
	require.NoError(t, err)
	return s
}

func TestOverdueSweepUsesClock(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 4, 9, 18, 0, 0, 0, time.UTC))
	invoices := &overdueInvoices{items: []invoicedomain.Invoice{
		{ID: 1, Number: "2026-0001", Status: invoicedomain.InvoiceStatusIssued, DueDate: time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Number: "2026-0002", Status: invoicedomain.InvoiceStatusPaid, DueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	s := newTestScheduler(t, invoices, clk, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, s.LastOverdueCount())

	clk.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, s.LastOverdueCount())
	require.Len(t, invoices.asOf, 2)
	assert.Equal(t, clk.Now(), invoices.asOf[1])
}

func TestOverdueCountIncludesUnlistedInvoices(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	invoices := &overdueInvoices{
		items: []invoicedomain.Invoice{
			{ID: 1, Number: "2026-0001", Status: invoicedomain.InvoiceStatusIssued, DueDate: time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)},
		},
		unlisted: 700,
	}
	s := newTestScheduler(t, invoices, clk, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 701, s.LastOverdueCount())
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	invoices := &overdueInvoices{}
	s := newTestScheduler(t, invoices, clock.NewFakeClock(time.Now()), Config{})
	locker := &deniedLocker{}
	s.locker = locker

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, locker.attempts)
	assert.Empty(t, invoices.asOf)
}

func TestRunJobReturnsListErrors(t *testing.T) {
	boom := errors.New("db down")
	s := newTestScheduler(t, &overdueInvoices{err: boom}, clock.NewFakeClock(time.Now()), Config{})

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s := newTestScheduler(t, &overdueInvoices{block: true}, clock.NewFakeClock(time.Now()), Config{
		JobTimeout: 5 * time.Millisecond,
	})

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{LockTTL: 30 * time.Second, JobTimeout: time.Hour}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)

	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
