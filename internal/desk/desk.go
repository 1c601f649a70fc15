// Package desk serves the circulation desk: its pages, the checkout and
// check-in wizards, and the application settings.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/clients"
	"librarydesk/internal/membership"
	"librarydesk/internal/querycache"
	"librarydesk/internal/wizard"
)

var validate = validator.New()

// ErrEmptyReceipt reports a command the data service accepted without
// returning a receipt.
var ErrEmptyReceipt = errors.New("data service returned no receipt")

// Services are the data service collaborators the desk reads and commands.
type Services struct {
	Catalog     catalog.Service
	Membership  membership.Service
	Circulation circulation.Service
}

type Desk struct {
	services Services
	calc     *circulation.Calculator
	cache    *querycache.Cache
	app      *AppContext
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *instruments

	catalogHandler     *catalog.Handler
	membershipHandler  *membership.Handler
	circulationHandler *circulation.Handler

	checkouts *Sessions[*CheckoutWizard]
	checkins  *Sessions[*CheckinWizard]
}

func New(services Services, calc *circulation.Calculator, cache *querycache.Cache, app *AppContext, logger *slog.Logger) (*Desk, error) {
	metrics, err := newInstruments(otel.Meter("librarydesk/desk"))
	if err != nil {
		return nil, err
	}

	d := &Desk{
		services: services,
		calc:     calc,
		cache:    cache,
		app:      app,
		logger:   logger,
		tracer:   otel.Tracer("librarydesk/desk"),
		metrics:  metrics,

		catalogHandler:     catalog.NewHandler(services.Catalog, cache, app.BranchID, logger),
		membershipHandler:  membership.NewHandler(services.Membership, cache, logger),
		circulationHandler: circulation.NewHandler(services.Circulation, services.Catalog, calc, cache, app.BranchID, logger),
	}
	d.checkouts = NewSessions(d.newCheckout)
	d.checkins = NewSessions(d.newCheckin)
	return d, nil
}

// SweepSessions drops wizard sessions idle for longer than idle.
func (d *Desk) SweepSessions(idle time.Duration) {
	removed := d.checkouts.Sweep(idle) + d.checkins.Sweep(idle)
	if removed > 0 {
		d.logger.Info("expired wizard sessions", "count", removed)
	}
}

// commitContext tags a wizard commit with an idempotency key that a retry of
// the same attempt reuses.
func commitContext(ctx context.Context, sessionID string) context.Context {
	if n, ok := wizard.AttemptFrom(ctx); ok {
		return clients.WithIdempotencyKey(ctx, fmt.Sprintf("%s/%d", sessionID, n))
	}
	return ctx
}

type instruments struct {
	commits metric.Int64Counter
	fines   metric.Float64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	commits, err := meter.Int64Counter("desk.commits",
		metric.WithDescription("Checkout and check-in commits by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create commits counter: %w", err)
	}
	fines, err := meter.Float64Counter("desk.fines_applied",
		metric.WithDescription("Fines applied at check-in"),
		metric.WithUnit("{USD}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fines counter: %w", err)
	}
	return &instruments{commits: commits, fines: fines}, nil
}

func (m *instruments) commit(ctx context.Context, flow string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.commits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}
