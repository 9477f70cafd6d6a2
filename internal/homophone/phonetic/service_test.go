package phonetic

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/homophoner/internal/observe"
	phondict "github.com/MrWong99/homophoner/pkg/provider/phonetic"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic/mock"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// dictOnly hides the Acquirer implementation of the wrapped mock.
type dictOnly struct{ d *mock.Dictionary }

func (d dictOnly) Entries(ctx context.Context) (map[string][][]string, error) {
	return d.d.Entries(ctx)
}

func TestService_HomophonesFor(t *testing.T) {
	t.Parallel()
	d := &mock.Dictionary{EntriesResult: testEntries}
	s := NewService(d, WithMetrics(testMetrics(t)))
	ctx := context.Background()

	if err := s.Ready(ctx); err == nil {
		t.Error("Ready before first use should fail")
	}
	if got, want := s.HomophonesFor(ctx, "buy"), []string{"by", "bye"}; !reflect.DeepEqual(got, want) {
		t.Errorf("HomophonesFor(buy) = %v, want %v", got, want)
	}
	_ = s.HomophonesFor(ctx, "read")
	if n, _ := d.Calls(); n != 1 {
		t.Errorf("Entries called %d times, want 1", n)
	}
	if err := s.Ready(ctx); err != nil {
		t.Errorf("Ready: %v", err)
	}
}

func TestService_AcquiresAndRetriesOnce(t *testing.T) {
	t.Parallel()
	d := &mock.Dictionary{
		EntriesResult: testEntries,
		EntriesErr:    fmt.Errorf("open: %w", phondict.ErrUnavailable),
	}
	s := NewService(d, WithMetrics(testMetrics(t)))

	if got := s.HomophonesFor(context.Background(), "buy"); len(got) != 2 {
		t.Fatalf("HomophonesFor(buy) = %v, want 2 words", got)
	}
	entries, acquire := d.Calls()
	if entries != 2 || acquire != 1 {
		t.Errorf("calls = (entries %d, acquire %d), want (2, 1)", entries, acquire)
	}
}

func TestService_AcquireFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	d := &mock.Dictionary{
		EntriesErr: phondict.ErrUnavailable,
		AcquireErr: errors.New("offline"),
	}
	s := NewService(d, WithMetrics(testMetrics(t)))
	ctx := context.Background()

	for range 3 {
		if got := s.HomophonesFor(ctx, "buy"); got != nil {
			t.Fatalf("HomophonesFor = %v, want nil", got)
		}
	}
	entries, acquire := d.Calls()
	if entries != 1 || acquire != 1 {
		t.Errorf("calls = (entries %d, acquire %d), want one attempt (1, 1)", entries, acquire)
	}
	if _, err := s.Index(ctx); !errors.Is(err, phondict.ErrUnavailable) {
		t.Errorf("Index err = %v, want wrapping ErrUnavailable", err)
	}
}

func TestService_UnavailableWithoutAcquirer(t *testing.T) {
	t.Parallel()
	m := &mock.Dictionary{EntriesErr: phondict.ErrUnavailable}
	s := NewService(dictOnly{m}, WithMetrics(testMetrics(t)))

	if got := s.HomophonesFor(context.Background(), "buy"); got != nil {
		t.Errorf("HomophonesFor = %v, want nil", got)
	}
	if _, acquire := m.Calls(); acquire != 0 {
		t.Errorf("Acquire called %d times, want 0", acquire)
	}
}

func TestService_WarmFailureThenRecover(t *testing.T) {
	t.Parallel()
	d := &mock.Dictionary{EntriesErr: errors.New("disk busy"), EntriesResult: testEntries}
	s := NewService(d, WithMetrics(testMetrics(t)))
	ctx := context.Background()

	if err := s.Warm(ctx); err == nil {
		t.Fatal("Warm: expected error")
	}
	d.EntriesErr = nil
	if got := s.HomophonesFor(ctx, "red"); !reflect.DeepEqual(got, []string{"read"}) {
		t.Errorf("HomophonesFor(red) after failed warm-up = %v, want [read]", got)
	}
}

func TestService_Invalidate(t *testing.T) {
	t.Parallel()
	d := &mock.Dictionary{EntriesResult: map[string][][]string{"by": {{"B", "AY1"}}, "buy": {{"B", "AY1"}}}}
	s := NewService(d, WithMetrics(testMetrics(t)))
	ctx := context.Background()

	_ = s.HomophonesFor(ctx, "buy")
	d.EntriesResult = testEntries
	s.Invalidate()
	if got := s.HomophonesFor(ctx, "buy"); len(got) != 2 {
		t.Errorf("HomophonesFor after Invalidate = %v, want rebuilt index", got)
	}
}
