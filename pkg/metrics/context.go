package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicContextKey holds the *newrelic.Application that events and custom
// metrics are recorded against.
type NewRelicContextKey struct{}

// StartOperation begins a New Relic background transaction named after an
// operation and returns a context carrying both the application and the
// transaction. With a nil app the context is returned unchanged and end is a
// no-op.
func StartOperation(ctx context.Context, app *newrelic.Application, name string) (context.Context, func(error)) {
	if app == nil {
		return ctx, func(error) {}
	}

	txn := app.StartTransaction(name)

	ctx = context.WithValue(ctx, NewRelicContextKey{}, app)
	ctx = newrelic.NewContext(ctx, txn)

	return ctx, func(err error) {
		if err != nil {
			txn.NoticeError(err)
		}
		txn.End()
	}
}

func applicationFromContext(ctx context.Context) (*newrelic.Application, bool) {
	nr, ok := ctx.Value(NewRelicContextKey{}).(*newrelic.Application)
	return nr, ok && nr != nil
}
