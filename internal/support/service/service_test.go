package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/support/domain"
	"github.com/smallbiznis/parcella/internal/support/repository"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	conn  *gorm.DB
	clock *clock.FakeClock
	user  context.Context
	other context.Context
	admin context.Context
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Ticket{}, &domain.TicketMessage{}))
	for _, ddl := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE patients (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE invoices (id INTEGER PRIMARY KEY, status TEXT, issue_date DATETIME, totale NUMERIC)`,
	} {
		require.NoError(t, conn.Exec(ddl).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC))

	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clk})

	principal := func(id snowflake.ID, role string) context.Context {
		return authcontext.WithPrincipal(context.Background(), authcontext.Principal{UserID: id, Role: role})
	}
	return &fixture{
		svc:   svc,
		conn:  conn,
		clock: clk,
		user:  principal(10, authcontext.RoleProfessional),
		other: principal(11, authcontext.RoleProfessional),
		admin: principal(1, authcontext.RoleAdmin),
	}
}

func TestTicketConversation(t *testing.T) {
	f := setup(t)

	ticket, err := f.svc.Open(f.user, domain.OpenTicketRequest{Subject: "Bollo", Body: "Il bollo non compare"})
	require.NoError(t, err)
	assert.Len(t, ticket.Ref, 26)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Len(t, ticket.Messages, 1)

	_, err = f.svc.Get(f.other, ticket.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.clock.Advance(time.Hour)
	answered, err := f.svc.AdminReply(f.admin, ticket.ID.String(), "Sotto 77,47 euro non è dovuto")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAnswered, answered.Status)
	require.Len(t, answered.Messages, 2)
	assert.True(t, answered.Messages[1].FromAdmin)

	reopened, err := f.svc.Reply(f.user, ticket.ID.String(), "Grazie!")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)

	closed, err := f.svc.Close(f.user, ticket.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = f.svc.Reply(f.user, ticket.ID.String(), "ancora")
	assert.ErrorIs(t, err, domain.ErrTicketClosed)

	full, err := f.svc.Get(f.admin, ticket.ID.String())
	require.NoError(t, err)
	assert.Len(t, full.Messages, 3)
}

func TestOpenValidation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Open(f.user, domain.OpenTicketRequest{Subject: " ", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidSubject)
	_, err = f.svc.Open(f.user, domain.OpenTicketRequest{Subject: "x", Body: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidBody)
	_, err = f.svc.Open(context.Background(), domain.OpenTicketRequest{Subject: "x", Body: "y"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := setup(t)

	ticket, err := f.svc.Open(f.user, domain.OpenTicketRequest{Subject: "Aiuto", Body: "..."})
	require.NoError(t, err)

	_, err = f.svc.ListAll(f.user, domain.ListTicketRequest{})
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	_, err = f.svc.AdminReply(f.user, ticket.ID.String(), "x")
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	_, err = f.svc.SetStatus(f.user, ticket.ID.String(), "closed")
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	_, err = f.svc.Stats(f.user)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)

	_, err = f.svc.SetStatus(f.admin, ticket.ID.String(), "pending")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	closed, err := f.svc.SetStatus(f.admin, ticket.ID.String(), "closed")
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	reopened, err := f.svc.SetStatus(f.admin, ticket.ID.String(), "open")
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
}

func TestListFilters(t *testing.T) {
	f := setup(t)

	first, err := f.svc.Open(f.user, domain.OpenTicketRequest{Subject: "Uno", Body: "a"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Open(f.other, domain.OpenTicketRequest{Subject: "Due", Body: "b"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Close(f.user, first.ID.String())
	require.NoError(t, err)

	mine, err := f.svc.ListMine(f.user, domain.ListTicketRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Tickets, 1)
	assert.Equal(t, first.ID, mine.Tickets[0].ID)

	all, err := f.svc.ListAll(f.admin, domain.ListTicketRequest{})
	require.NoError(t, err)
	require.Len(t, all.Tickets, 2)
	assert.Equal(t, first.ID, all.Tickets[0].ID)

	open, err := f.svc.ListAll(f.admin, domain.ListTicketRequest{Status: "open"})
	require.NoError(t, err)
	require.Len(t, open.Tickets, 1)
	assert.Equal(t, "Due", open.Tickets[0].Subject)

	page, err := f.svc.ListAll(f.admin, domain.ListTicketRequest{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.True(t, page.HasMore)
	next, err := f.svc.ListAll(f.admin, domain.ListTicketRequest{PageSize: 1, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Tickets, 1)
	assert.Equal(t, "Due", next.Tickets[0].Subject)
}

func TestStats(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.conn.Exec(`INSERT INTO users (id) VALUES (1), (10), (11)`).Error)
	require.NoError(t, f.conn.Exec(`INSERT INTO patients (id) VALUES (1), (2)`).Error)
	insert := `INSERT INTO invoices (id, status, issue_date, totale) VALUES (?, ?, ?, ?)`
	require.NoError(t, f.conn.Exec(insert, 1, "issued", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "104.00").Error)
	require.NoError(t, f.conn.Exec(insert, 2, "paid", time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), "71.40").Error)
	require.NoError(t, f.conn.Exec(insert, 3, "cancelled", time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), "50").Error)
	require.NoError(t, f.conn.Exec(insert, 4, "paid", time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC), "80").Error)

	_, err := f.svc.Open(f.user, domain.OpenTicketRequest{Subject: "x", Body: "y"})
	require.NoError(t, err)

	stats, err := f.svc.Stats(f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2026, stats.Year)
	assert.EqualValues(t, 3, stats.Users)
	assert.EqualValues(t, 2, stats.Patients)
	assert.EqualValues(t, 4, stats.Invoices)
	assert.EqualValues(t, 1, stats.OpenTickets)
	require.Len(t, stats.MonthlyTotal, 12)
	assert.EqualValues(t, 2, stats.MonthlyTotal[2].Invoices)
	assert.Equal(t, "175.40", stats.MonthlyTotal[2].Totale.StringFixed(2))
	assert.True(t, stats.MonthlyTotal[0].Totale.IsZero())
}
