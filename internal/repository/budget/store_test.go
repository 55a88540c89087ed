package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/askme/internal/db"
)

type expireCall struct {
	key string
	ttl time.Duration
	nx  bool
}

type mockKV struct {
	data      map[string][]byte
	incrErr   error
	expireErr error
	incrs     map[string]int64
	expires   []expireCall
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string][]byte{}, incrs: map[string]int64{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.incrs[key] += val
	return nil
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expires = append(m.expires, expireCall{key: key, ttl: ttl, nx: nx})
	return m.expireErr
}

func TestIncrBy_SetsTTLByPeriod(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	if err := s.IncrBy(context.Background(), "askme:budget:openai:daily:2026-07-04", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(context.Background(), "askme:budget:openai:monthly:2026-07", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kv.expires) != 2 {
		t.Fatalf("expected 2 EXPIRE calls, got %d", len(kv.expires))
	}
	if kv.expires[0].ttl != 48*time.Hour || !kv.expires[0].nx {
		t.Errorf("daily key: unexpected expire %+v", kv.expires[0])
	}
	if kv.expires[1].ttl != 62*24*time.Hour || !kv.expires[1].nx {
		t.Errorf("monthly key: unexpected expire %+v", kv.expires[1])
	}
}

func TestIncrBy_Errors(t *testing.T) {
	kv := newMockKV()
	kv.incrErr = errors.New("down")
	s := New(kv, 0, 0)

	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected INCRBY error")
	}
	if len(kv.expires) != 0 {
		t.Error("EXPIRE must not run after a failed INCRBY")
	}

	kv.incrErr = nil
	kv.expireErr = errors.New("down")
	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected EXPIRE error")
	}
}

func TestGet(t *testing.T) {
	kv := newMockKV()
	kv.data["present"] = []byte("1234")
	kv.data["garbage"] = []byte("abc")
	s := New(kv, 0, 0)

	if v, err := s.Get(context.Background(), "present"); err != nil || v != 1234 {
		t.Errorf("Get(present) = %d, %v", v, err)
	}
	if v, err := s.Get(context.Background(), "missing"); err != nil || v != 0 {
		t.Errorf("Get(missing) = %d, %v; want 0, nil", v, err)
	}
	if _, err := s.Get(context.Background(), "garbage"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(newMockKV(), 0, -1)
	if s.dailyTTL != DefaultDailyTTL || s.monthTTL != DefaultMonthlyTTL {
		t.Errorf("unexpected defaults: %v / %v", s.dailyTTL, s.monthTTL)
	}
}
