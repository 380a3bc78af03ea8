package deals

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// stubDB satisfies dbtx with canned result sets so the row-scanning and
// relation-attachment logic can be exercised without a live database.
type stubDB struct {
	deals     [][]any
	lines     [][]any
	schedules [][]any
	count     int
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM service_lines"):
		return &stubRows{rows: s.lines}, nil
	case strings.Contains(sql, "FROM payment_schedules"):
		return &stubRows{rows: s.schedules}, nil
	default:
		return &stubRows{rows: s.deals}, nil
	}
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return stubRow{values: []any{s.count}}
}

type stubRows struct {
	rows [][]any
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assignRow(r.rows[r.idx-1], dest)
}

type stubRow struct {
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	return assignRow(r.values, dest)
}

func assignRow(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, val := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = val.(string)
		case *int:
			*d = val.(int)
		case *int64:
			*d = val.(int64)
		case *bool:
			*d = val.(bool)
		case *time.Time:
			*d = val.(time.Time)
		case *[]byte:
			if val == nil {
				*d = nil
			} else {
				*d = []byte(val.(string))
			}
		case **string:
			if val == nil {
				*d = nil
			} else {
				s := val.(string)
				*d = &s
			}
		case *DealStatus:
			*d = val.(DealStatus)
		case *ServiceType:
			*d = val.(ServiceType)
		default:
			return fmt.Errorf("scan: unsupported target %T", dest[i])
		}
	}
	return nil
}

var stubScanTime = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func dealRow(id string, company string) []any {
	return []any{id, int64(1), company, nil, `{}`, StatusOngoing, nil, `{}`, stubScanTime, stubScanTime}
}

func lineRow(id int64, dealID string, details string) []any {
	return []any{id, dealID, ServiceTest, details, stubScanTime, stubScanTime}
}

func scheduleRow(id int64, dealID string, amount int64) []any {
	return []any{id, dealID, stubScanTime, amount, nil, false, stubScanTime, stubScanTime}
}

func newStubDB() *stubDB {
	return &stubDB{
		deals: [][]any{
			dealRow("d1", "Hanbit Academy"),
			dealRow("d2", "Sejong High"),
			dealRow("d3", "Mirae Institute"),
		},
		lines: [][]any{
			lineRow(1, "d1", `{"price":100,"count":2}`),
			lineRow(2, "d2", `{"price":50,"count":1}`),
			lineRow(3, "d3", `{"price":70,"count":3}`),
		},
		schedules: [][]any{
			scheduleRow(1, "d1", 200),
			scheduleRow(2, "d2", 50),
			scheduleRow(3, "d3", 210),
		},
		count: 3,
	}
}

// Every row must keep its relations after the result slice has grown past
// its initial capacity; each deal carries exactly one line and one schedule
// and they must land on the right parent.
func requireRelationsAttached(t *testing.T, records []Deal) {
	t.Helper()
	require.Len(t, records, 3)
	for _, d := range records {
		require.Len(t, d.Services, 1, "deal %s lost its service lines", d.ID)
		require.Equal(t, d.ID, d.Services[0].DealID)
		require.Len(t, d.PaymentSchedules, 1, "deal %s lost its payment schedules", d.ID)
		require.Equal(t, d.ID, d.PaymentSchedules[0].DealID)
	}
	require.Equal(t, int64(200), QuoteTotal(records[0].Services))
	require.Equal(t, int64(50), QuoteTotal(records[1].Services))
	require.Equal(t, int64(210), QuoteTotal(records[2].Services))
}

func TestRepositoryListAttachesRelationsToEveryRow(t *testing.T) {
	repo := &repository{db: newStubDB()}

	records, total, err := repo.List(context.Background(), ListFilter{OwnerID: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	requireRelationsAttached(t, records)
}

func TestRepositoryListAllByOwnerAttachesRelationsToEveryRow(t *testing.T) {
	repo := &repository{db: newStubDB()}

	records, err := repo.ListAllByOwner(context.Background(), 1)
	require.NoError(t, err)
	requireRelationsAttached(t, records)
}

func TestRepositoryListWithOwnersAttachesRelationsToEveryRow(t *testing.T) {
	stub := newStubDB()
	for i := range stub.deals {
		stub.deals[i] = append(stub.deals[i], "owner@example.com")
	}
	repo := &repository{db: stub}

	records, err := repo.ListWithOwners(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	inner := make([]Deal, 0, len(records))
	for _, rec := range records {
		require.Equal(t, "owner@example.com", rec.OwnerEmail)
		inner = append(inner, rec.Deal)
	}
	requireRelationsAttached(t, inner)
}
