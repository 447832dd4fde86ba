package recalculation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/metrics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/repository/sqlite"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/service/daymetrics"
	"github.com/stretchr/testify/require"
)

var rules = attendance.DefaultRules()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, rules.Location)
}

func key(t time.Time) string {
	return t.In(rules.Location).Format("2006-01-02")
}

// testClock advances one second per reading.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *testClock {
	return &testClock{now: time.Date(2024, 7, 15, 2, 0, 0, 0, rules.Location)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeAttendance struct {
	mu       sync.Mutex
	records  map[string][]attendance.Record
	failDays map[string]error
	// onList runs before a day is read
	onList func(ctx context.Context, date string)
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{records: map[string][]attendance.Record{}, failDays: map[string]error{}}
}

// seed adds a completed 09:00-18:00 shift for each code on every day in [from, to].
func (f *fakeAttendance) seed(from, to time.Time, dept string, codes ...string) {
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, code := range codes {
			in, out := d.Add(9*time.Hour), d.Add(18*time.Hour)
			f.records[key(d)] = append(f.records[key(d)], attendance.Record{
				EmployeeCode: code,
				Date:         d,
				CheckIn:      &in,
				CheckOut:     &out,
				Department:   dept,
			})
		}
	}
}

func (f *fakeAttendance) ListByDate(ctx context.Context, date time.Time, filter attendance.Filter) ([]attendance.Record, error) {
	if f.onList != nil {
		f.onList(ctx, key(date))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDays[key(date)]; err != nil {
		return nil, err
	}
	var out []attendance.Record
	for _, r := range f.records[key(date)] {
		if filter.Matches(r.EmployeeCode, r.Department) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttendance) ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]attendance.CheckIn, error) {
	return nil, nil
}

func (f *fakeAttendance) CountActiveByDepartment(ctx context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

type deleteCall struct {
	from, to string
	filter   attendance.Filter
}

type fakeMetrics struct {
	mu        sync.Mutex
	now       func() time.Time
	rows      map[string]metrics.UnifiedMetric
	deletes   []deleteCall
	schemaErr error
	upsertErr map[string]error
	// onUpsert runs before a row is written
	onUpsert func(ctx context.Context, m metrics.UnifiedMetric)
}

func newFakeMetrics(now func() time.Time) *fakeMetrics {
	return &fakeMetrics{now: now, rows: map[string]metrics.UnifiedMetric{}, upsertErr: map[string]error{}}
}

func rowKey(date time.Time, code string) string {
	return key(date) + "/" + code
}

func (f *fakeMetrics) EnsureSchema(ctx context.Context) error {
	return f.schemaErr
}

func (f *fakeMetrics) Upsert(ctx context.Context, m metrics.UnifiedMetric) error {
	if f.onUpsert != nil {
		f.onUpsert(ctx, m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(m.Date, m.EmployeeCode)
	if err := f.upsertErr[k]; err != nil {
		return err
	}
	now := f.now()
	if existing, ok := f.rows[k]; ok {
		m.CreatedAt = existing.CreatedAt
	} else {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	f.rows[k] = m
	return nil
}

func (f *fakeMetrics) DeleteRange(ctx context.Context, from, to time.Time, filter attendance.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, deleteCall{from: key(from), to: key(to), filter: filter})
	var n int64
	for k, m := range f.rows {
		d := key(m.Date)
		if d >= key(from) && d <= key(to) && filter.Matches(m.EmployeeCode, m.Department) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeMetrics) ListRange(ctx context.Context, from, to time.Time, filter attendance.Filter) ([]metrics.UnifiedMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []metrics.UnifiedMetric
	for _, m := range f.rows {
		d := key(m.Date)
		if d >= key(from) && d <= key(to) && filter.Matches(m.EmployeeCode, m.Department) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return rowKey(out[i].Date, out[i].EmployeeCode) < rowKey(out[j].Date, out[j].EmployeeCode)
	})
	return out, nil
}

func (f *fakeMetrics) row(date time.Time, code string) (metrics.UnifiedMetric, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[rowKey(date, code)]
	return m, ok
}

func (f *fakeMetrics) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// failingStore rejects every write.
type failingStore struct{}

var errStoreDown = errors.New("checkpoint store down")

func (failingStore) Load(ctx context.Context, processID string) (*recalculation.Progress, error) {
	return nil, errStoreDown
}

func (failingStore) Latest(ctx context.Context) (*recalculation.Progress, error) {
	return nil, errStoreDown
}

func (failingStore) Save(ctx context.Context, p *recalculation.Progress) error {
	return errStoreDown
}

type harness struct {
	clock      *testClock
	attendance *fakeAttendance
	metrics    *fakeMetrics
	store      recalculation.ProgressStore
	tx         *fakeTx
	events     []recalculation.Summary
	ids        int
}

func newHarness(t *testing.T) *harness {
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	store := sqlite.NewProgressStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	clock := newClock()
	return &harness{
		clock:      clock,
		attendance: newFakeAttendance(),
		metrics:    newFakeMetrics(clock.Now),
		store:      store,
		tx:         &fakeTx{},
	}
}

func (h *harness) service(opts Options) *RecalculationServiceImpl {
	opts.Now = h.clock.Now
	opts.NewID = func() string {
		h.ids++
		return fmt.Sprintf("run-%d", h.ids)
	}
	opts.OnCheckpoint = func(s recalculation.Summary) {
		h.events = append(h.events, s)
	}
	return NewRecalculationService(h.attendance, h.metrics, h.store, h.tx, daymetrics.NewCalculator(rules), opts)
}

func (h *harness) plan(t *testing.T, svc *RecalculationServiceImpl, req recalculation.Request) recalculation.Plan {
	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	return plan
}
