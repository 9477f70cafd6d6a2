package homophone

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/homophoner/internal/lazy"
	"github.com/MrWong99/homophoner/internal/observe"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

// ModelSource hands out the embedding model, loading it on first use.
type ModelSource interface {
	Model(ctx context.Context) (vectors.Model, error)
}

// ModelLoader is the process-wide, lazily loaded embedding model. A failed
// load is memoised so an unavailable model is reported once instead of being
// retried on every resolution; [ModelLoader.Warm] failures are not.
type ModelLoader struct {
	loader  *lazy.Loader[vectors.Model]
	metrics *observe.Metrics
}

// LoaderOption is a functional option for NewModelLoader.
type LoaderOption func(*ModelLoader)

// WithLoaderMetrics sets the metrics recorder. Defaults to
// [observe.DefaultMetrics].
func WithLoaderMetrics(m *observe.Metrics) LoaderOption {
	return func(l *ModelLoader) {
		l.metrics = m
	}
}

// NewModelLoader returns a ModelLoader that obtains the model from open.
func NewModelLoader(open func(ctx context.Context) (vectors.Model, error), opts ...LoaderOption) *ModelLoader {
	l := &ModelLoader{}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	l.loader = lazy.New(func(ctx context.Context) (m vectors.Model, err error) {
		ctx, span := observe.StartSpan(ctx, "homophone.LoadModel")
		defer func() { observe.Finish(span, err) }()
		start := time.Now()
		observe.Logger(ctx).Info("loading embedding model, this might take a while")
		m, err = open(ctx)
		l.metrics.RecordLoad(ctx, "model", time.Since(start), err)
		if err != nil {
			observe.Logger(ctx).Error("embedding model unavailable", "err", err)
			return nil, err
		}
		observe.Logger(ctx).Info("embedding model loaded",
			"model", m.ModelID(),
			"dims", m.Dimensions(),
			"duration", time.Since(start),
		)
		return m, nil
	})
	return l
}

// Model implements [ModelSource].
func (l *ModelLoader) Model(ctx context.Context) (vectors.Model, error) {
	return l.loader.Get(ctx)
}

// Warm loads the model ahead of the first resolution.
func (l *ModelLoader) Warm(ctx context.Context) error {
	return l.loader.Warm(ctx)
}

// Ready reports nil once the model is loaded. Used as a readiness check.
func (l *ModelLoader) Ready(context.Context) error {
	if st := l.loader.State(); st != lazy.Ready {
		return fmt.Errorf("embedding model %s", st)
	}
	return nil
}

// Invalidate discards the loaded model or memoised failure so that the next
// resolution loads it again.
func (l *ModelLoader) Invalidate() {
	l.loader.Invalidate()
}
