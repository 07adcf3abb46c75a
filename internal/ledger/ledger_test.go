package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"agenda_backend/internal/intent"
	"agenda_backend/platform/apperr"
	"agenda_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// memoryStore mimics PostgresStore semantics in memory.
type memoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	window   time.Duration
	rows     []Response
	states   map[int64]intent.Status
	inserts  int
	failNext error
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{now: now, window: DefaultDedupWindow, states: map[int64]intent.Status{}}
}

func (m *memoryStore) RecordReply(_ context.Context, r Reply) (Recorded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return Recorded{}, err
	}
	now := m.now()
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if row.MeetingID == r.MeetingID && row.Text == r.Text && now.Sub(row.ReceivedAt) < m.window {
			return Recorded{ID: row.ID, ReceivedAt: row.ReceivedAt}, nil
		}
	}
	row := Response{ID: uuid.New(), MeetingID: r.MeetingID, Text: r.Text, Status: r.Status, Confidence: r.Confidence, ReceivedAt: now}
	m.rows = append(m.rows, row)
	m.inserts++
	return Recorded{ID: row.ID, ReceivedAt: now, Created: true}, nil
}

func (m *memoryStore) ApplyStatus(_ context.Context, id int64, s intent.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[id]; !ok {
		return false, nil
	}
	m.states[id] = s
	return true, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*Ledger, *memoryStore, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newMemoryStore(clk.Now)
	l := New(store, NewRedisCache(client), DefaultDedupWindow, nil)
	l.now = clk.Now
	return l, store, mr, clk
}

func TestRecordReplyDeduplicatesWithinWindow(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	ctx := context.Background()
	reply := Reply{MeetingID: 7, Text: "sim", Status: intent.StatusConfirmed, Confidence: 0.96}

	first, err := l.RecordReply(ctx, reply)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := l.RecordReply(ctx, reply)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}

	if first != second {
		t.Fatalf("expected same response id, got %s and %s", first, second)
	}
	if store.inserts != 1 {
		t.Fatalf("expected a single insert, got %d", store.inserts)
	}
}

func TestRecordReplyConcurrentIdenticalRepliesShareOneRow(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	ctx := context.Background()
	reply := Reply{MeetingID: 7, Text: "confirmado", Status: intent.StatusConfirmed, Confidence: 0.9}

	const workers = 16
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = l.RecordReply(ctx, reply)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got id %s, want %s", i, ids[i], ids[0])
		}
	}
	if store.inserts != 1 || len(store.rows) != 1 {
		t.Fatalf("expected one row, got inserts=%d rows=%d", store.inserts, len(store.rows))
	}
}

func TestRecordReplyPassesMeetingNotFoundThrough(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	store.failNext = apperr.Wrap(apperr.KindNotFound, "meeting not found", ErrMeetingNotFound)

	_, err := l.RecordReply(context.Background(), Reply{MeetingID: 7, Text: "sim"})
	if !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestRecordReplyFallsBackToStoreWhenCacheIsCold(t *testing.T) {
	l, store, mr, _ := newTestLedger(t)
	ctx := context.Background()
	reply := Reply{MeetingID: 7, Text: "sim"}

	first, _ := l.RecordReply(ctx, reply)
	mr.FlushAll()
	second, err := l.RecordReply(ctx, reply)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if first != second || store.inserts != 1 {
		t.Fatalf("expected store-level dedup, ids %s/%s inserts %d", first, second, store.inserts)
	}
}

func TestRecordReplyAfterWindowCreatesNewRow(t *testing.T) {
	l, store, mr, clk := newTestLedger(t)
	ctx := context.Background()
	reply := Reply{MeetingID: 7, Text: "sim"}

	first, _ := l.RecordReply(ctx, reply)
	clk.Advance(DefaultDedupWindow + time.Second)
	mr.FastForward(DefaultDedupWindow + time.Second)

	second, err := l.RecordReply(ctx, reply)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if first == second || store.inserts != 2 {
		t.Fatalf("expected a new row after the window, ids %s/%s inserts %d", first, second, store.inserts)
	}
}

func TestRecordReplyDistinctTextOrMeeting(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	ctx := context.Background()

	a, _ := l.RecordReply(ctx, Reply{MeetingID: 7, Text: "sim"})
	b, _ := l.RecordReply(ctx, Reply{MeetingID: 7, Text: "sim!"})
	c, _ := l.RecordReply(ctx, Reply{MeetingID: 8, Text: "sim"})

	if a == b || a == c || b == c || store.inserts != 3 {
		t.Fatalf("expected three distinct rows, got %s %s %s (inserts %d)", a, b, c, store.inserts)
	}
}

func TestRecordReplyIgnoresCacheOutage(t *testing.T) {
	l, store, mr, _ := newTestLedger(t)
	mr.Close()

	id, err := l.RecordReply(context.Background(), Reply{MeetingID: 7, Text: "sim"})
	if err != nil {
		t.Fatalf("expected cache outage to be tolerated, got %v", err)
	}
	if id == uuid.Nil || store.inserts != 1 {
		t.Fatalf("expected store insert, got id %s inserts %d", id, store.inserts)
	}
}

func TestRecordReplyPropagatesStoreFailure(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	store.failNext = apperr.Unavailable(errStorage, errors.New("connection refused"))

	_, err := l.RecordReply(context.Background(), Reply{MeetingID: 7, Text: "sim"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestStoreFailuresAreLoggedAsDatabaseErrors(t *testing.T) {
	var buf bytes.Buffer
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newMemoryStore(clk.Now)
	l := New(store, nil, DefaultDedupWindow, logger.NewWithWriter("production", &buf))

	store.failNext = apperr.Unavailable(errStorage, errors.New("connection reset"))
	if _, err := l.RecordReply(context.Background(), Reply{MeetingID: 7, Text: "sim"}); err == nil {
		t.Fatal("expected store failure")
	}
	if !strings.Contains(buf.String(), `"msg":"database_error"`) || !strings.Contains(buf.String(), `"operation":"record reply"`) {
		t.Fatalf("expected a database_error log line, got %q", buf.String())
	}

	buf.Reset()
	store.failNext = apperr.Wrap(apperr.KindNotFound, "meeting not found", ErrMeetingNotFound)
	_, _ = l.RecordReply(context.Background(), Reply{MeetingID: 7, Text: "sim"})
	if strings.Contains(buf.String(), "database_error") {
		t.Fatalf("a missing meeting is not a database error, got %q", buf.String())
	}
}

func TestApplyStatusMissingMeeting(t *testing.T) {
	l, store, _, _ := newTestLedger(t)
	store.states[1] = intent.StatusPending

	changed, err := l.ApplyStatus(context.Background(), 999, intent.StatusConfirmed)
	if err != nil || changed {
		t.Fatalf("expected false without error, got %v %v", changed, err)
	}
	if store.states[1] != intent.StatusPending || len(store.states) != 1 {
		t.Fatalf("expected no write, states %+v", store.states)
	}
}

func TestRedisCacheKeepsFirstEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewRedisCache(client)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	if err := cache.Remember(ctx, 1, "ok", first, time.Minute); err != nil {
		t.Fatalf("remember: %v", err)
	}
	_ = cache.Remember(ctx, 1, "ok", second, time.Minute)

	got, ok, err := cache.Lookup(ctx, 1, "ok")
	if err != nil || !ok || got != first {
		t.Fatalf("expected first id, got %s ok=%v err=%v", got, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := cache.Lookup(ctx, 1, "ok"); ok {
		t.Fatal("expected entry to expire")
	}
}
