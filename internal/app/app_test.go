package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/homophoner/internal/app"
	"github.com/MrWong99/homophoner/internal/config"
	"github.com/MrWong99/homophoner/internal/homophone"
	"github.com/MrWong99/homophoner/internal/observe"
	"github.com/MrWong99/homophoner/pkg/provider/homophones"
	homophonesmock "github.com/MrWong99/homophoner/pkg/provider/homophones/mock"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
	phoneticmock "github.com/MrWong99/homophoner/pkg/provider/phonetic/mock"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
	vectorsmock "github.com/MrWong99/homophoner/pkg/provider/vectors/mock"
)

// testSpace places "religion" next to "rite" and "pen" next to "write".
func testSpace() map[string][]float32 {
	return map[string][]float32{
		"right":    {1, 0, 0},
		"write":    {0, 1, 0},
		"rite":     {0, 0, 1},
		"wright":   {0.5, 0.5, 0},
		"religion": {0.1, 0, 0.9},
		"pen":      {0, 0.9, 0.1},
	}
}

type harness struct {
	app        *app.App
	srv        *httptest.Server
	user       *closingSource
	dict       *phoneticmock.Dictionary
	modelOpens map[string]int
	mu         sync.Mutex
}

// closingSource records Close so shutdown ordering can be asserted.
type closingSource struct {
	homophonesmock.Source
	closed bool
}

func (c *closingSource) Close() error {
	c.closed = true
	return nil
}

func (h *harness) opens(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.modelOpens[name]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Model:      config.ProviderEntry{Name: "fake"},
		Phonetic:   config.ProviderEntry{Name: "fake"},
		Homophones: config.ProviderEntry{Name: "fake"},
		Overrides:  config.OverridesConfig{BaseDir: t.TempDir()},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	h := &harness{
		user: &closingSource{Source: homophonesmock.Source{Groups: map[string][]string{
			"right":  {"right", "write", "rite", "wright"},
			"write":  {"right", "write", "rite", "wright"},
			"rite":   {"right", "write", "rite", "wright"},
			"wright": {"right", "write", "rite", "wright"},
		}}},
		dict: &phoneticmock.Dictionary{EntriesResult: map[string][][]string{
			"buy": {{"B", "AY1"}},
			"by":  {{"B", "AY1"}},
			"bye": {{"B", "AY1"}},
		}},
		modelOpens: make(map[string]int),
	}

	reg := config.NewRegistry()
	openModel := func(_ context.Context, e config.ProviderEntry) (vectors.Model, error) {
		h.mu.Lock()
		h.modelOpens[e.Name]++
		h.mu.Unlock()
		return &vectorsmock.Model{Vectors: testSpace(), ModelIDValue: e.Name}, nil
	}
	reg.RegisterModel("fake", openModel)
	reg.RegisterModel("other", openModel)
	reg.RegisterModel("broken", func(context.Context, config.ProviderEntry) (vectors.Model, error) {
		return nil, errors.New("vectors file missing")
	})
	reg.RegisterPhonetic("fake", func(config.ProviderEntry) (phonetic.Dictionary, error) { return h.dict, nil })
	reg.RegisterHomophones("fake", func(context.Context, config.ProviderEntry) (homophones.Source, error) { return h.user, nil })

	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	a, err := app.New(context.Background(), cfg, reg, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.app = a
	h.srv = httptest.NewServer(a.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestResolve_ScoresByContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	resp := h.post(t, "/v1/resolve", map[string]string{"word": "right", "context": "religion"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	res := decode[homophone.Resolution](t, resp)
	if res.Word != "rite" {
		t.Errorf("word = %q, want rite", res.Word)
	}
	if res.Outcome != homophone.OutcomeScored {
		t.Errorf("outcome = %q, want scored", res.Outcome)
	}
	if len(res.Scores) != 4 {
		t.Errorf("scores = %v, want one per candidate", res.Scores)
	}
}

func TestResolve_OutOfVocabularyCandidates(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	resp := h.post(t, "/v1/resolve", map[string]string{"word": "buy", "context": "religion"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	res := decode[homophone.Resolution](t, resp)
	if res.Word != "buy" {
		t.Errorf("word = %q, want buy", res.Word)
	}
	if len(res.Scores) != 3 {
		t.Fatalf("scores = %v, want three", res.Scores)
	}
	for _, s := range res.Scores {
		if !math.IsInf(s.Score, -1) {
			t.Errorf("score for %q = %v, want -Inf", s.Word, s.Score)
		}
	}
}

func TestResolve_UnknownWordIsIdentity(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	res := decode[homophone.Resolution](t, h.post(t, "/v1/resolve", map[string]string{"word": "xyzzy", "context": "anything"}))
	if res.Word != "xyzzy" || res.Outcome != homophone.OutcomeIdentity {
		t.Errorf("got %+v, want identity xyzzy", res)
	}
	if n := h.opens("fake"); n != 0 {
		t.Errorf("model opened %d times for a word without candidates", n)
	}
}

func TestResolve_ModelUnavailable(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Model.Name = "broken"
	h := newHarness(t, cfg)

	resp := h.post(t, "/v1/resolve", map[string]string{"word": "right", "context": "religion"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestResolve_BadRequest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	for _, body := range []any{
		map[string]string{"word": " ", "context": "x"},
		map[string]any{"word": "right", "unexpected": true},
	} {
		if resp := h.post(t, "/v1/resolve", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestCandidates_PhoneticFallback(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	resp := h.get(t, "/v1/candidates/buy")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[struct {
		Word       string   `json:"word"`
		Candidates []string `json:"candidates"`
	}](t, resp)
	want := []string{"buy", "by", "bye"}
	if len(got.Candidates) != len(want) {
		t.Fatalf("candidates = %v, want %v", got.Candidates, want)
	}
	for i := range want {
		if got.Candidates[i] != want[i] {
			t.Errorf("candidates[%d] = %q, want %q", i, got.Candidates[i], want[i])
		}
	}
}

func TestCandidates_UnknownWordIsEmptyList(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	got := decode[struct {
		Candidates []string `json:"candidates"`
	}](t, h.get(t, "/v1/candidates/xyzzy"))
	if got.Candidates == nil || len(got.Candidates) != 0 {
		t.Errorf("candidates = %#v, want empty list", got.Candidates)
	}
}

func TestOverrides_SetThenResolve(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	resp := h.post(t, "/v1/overrides", map[string]string{"word": "right", "context": "pen", "replacement": "wright"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	res := decode[homophone.Resolution](t, h.post(t, "/v1/resolve", map[string]string{"word": "write", "context": "pen"}))
	if res.Word != "wright" || res.Outcome != homophone.OutcomeOverride {
		t.Errorf("got %+v, want override to wright", res)
	}
}

func TestOverrides_DefaultEntryApplies(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	res := decode[homophone.Resolution](t, h.post(t, "/v1/resolve", map[string]string{"word": "right", "context": "read"}))
	if res.Word != "write" || res.Outcome != homophone.OutcomeOverride {
		t.Errorf("got %+v, want override to write", res)
	}
}

func TestOverrides_RejectsBlank(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	resp := h.post(t, "/v1/overrides", map[string]string{"word": "right", "context": "", "replacement": "write"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOverrides_FilePath(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	got := decode[struct {
		Path string `json:"path"`
	}](t, h.get(t, "/v1/overrides"))
	if filepath.Base(got.Path) != "homophoner_overrides.csv" {
		t.Errorf("path = %q", got.Path)
	}
	if _, err := os.Stat(got.Path); err != nil {
		t.Errorf("override file should exist: %v", err)
	}
}

func TestReadyz_AfterWarm(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	if resp := h.get(t, "/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz before warm-up: status = %d, want 503", resp.StatusCode)
	}
	if err := h.app.Warm(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if resp := h.get(t, "/readyz"); resp.StatusCode != http.StatusOK {
		t.Errorf("readyz after warm-up: status = %d, want 200", resp.StatusCode)
	}
	if resp := h.get(t, "/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", resp.StatusCode)
	}
}

func TestWarm_ModelFailureIsRetried(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Model.Name = "broken"
	h := newHarness(t, cfg)

	if err := h.app.Warm(context.Background()); err == nil {
		t.Fatal("expected warm-up error for broken model")
	}

	next := *cfg
	next.Model.Name = "fake"
	h.app.ApplyConfig(cfg, &next)

	res := decode[homophone.Resolution](t, h.post(t, "/v1/resolve", map[string]string{"word": "right", "context": "religion"}))
	if res.Word != "rite" {
		t.Errorf("word = %q, want rite after model reload", res.Word)
	}
}

func TestApplyConfig_ModelChangeReloads(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	ctx := context.Background()

	if _, err := h.app.Resolver().Resolve(ctx, "right", "religion"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	next := *cfg
	next.Model.Name = "other"
	h.app.ApplyConfig(cfg, &next)

	if _, err := h.app.Resolver().Resolve(ctx, "right", "religion"); err != nil {
		t.Fatalf("Resolve after reload: %v", err)
	}
	if h.opens("fake") != 1 || h.opens("other") != 1 {
		t.Errorf("opens: fake=%d other=%d, want 1 each", h.opens("fake"), h.opens("other"))
	}
	if h.app.Config().Model.Name != "other" {
		t.Errorf("Config().Model.Name = %q, want other", h.app.Config().Model.Name)
	}
}

func TestApplyConfig_LogLevel(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	var lv slog.LevelVar

	reg := config.NewRegistry()
	reg.RegisterPhonetic("fake", func(config.ProviderEntry) (phonetic.Dictionary, error) {
		return &phoneticmock.Dictionary{}, nil
	})
	reg.RegisterHomophones("fake", func(context.Context, config.ProviderEntry) (homophones.Source, error) {
		return &homophonesmock.Source{}, nil
	})
	a, err := app.New(context.Background(), cfg, reg, app.WithLogLevel(&lv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	next := *cfg
	next.Server.LogLevel = config.LogDebug
	a.ApplyConfig(cfg, &next)
	if lv.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", lv.Level())
	}
}

func TestNew_UnregisteredPhonetic(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	_, err := app.New(context.Background(), cfg, config.NewRegistry())
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestShutdown_ClosesProviders(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(t))

	if err := h.app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !h.user.closed {
		t.Error("homophone source was not closed")
	}
	// Idempotent.
	if err := h.app.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := app.SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
