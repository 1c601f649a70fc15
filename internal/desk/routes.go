package desk

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Route is one entry of the desk's route table.
type Route struct {
	Method  string
	Pattern string
	Name    string
	Handler http.HandlerFunc
}

// Routes returns the full route table. Every view is built per request.
func (d *Desk) Routes() []Route {
	checkout := d.checkoutEndpoints()
	checkin := d.checkinEndpoints()

	return []Route{
		{http.MethodGet, "/", "home", d.HandleDashboard},
		{http.MethodGet, "/dashboard", "dashboard", d.HandleDashboard},
		{http.MethodGet, "/healthz", "health", d.HandleHealth},

		{http.MethodGet, "/library-items", "library_items", d.catalogHandler.HandleItems},
		{http.MethodGet, "/library-items/{itemID}", "library_item", d.catalogHandler.HandleItem},
		{http.MethodGet, "/library-items/{itemID}/copies", "library_item_copies_by_item", d.catalogHandler.HandleItemCopies},
		{http.MethodGet, "/books/{itemID}", "book", d.catalogHandler.HandleItem},
		{http.MethodGet, "/library-item-copies", "library_item_copies", d.catalogHandler.HandleCopies},
		{http.MethodPost, "/library-item-copies", "create_library_item_copy", d.catalogHandler.HandleCreateCopy},
		{http.MethodGet, "/available", "available", d.catalogHandler.HandleAvailable},
		{http.MethodGet, "/reshelve", "reshelve", d.catalogHandler.HandleUnshelved},
		{http.MethodPost, "/reshelve/{copyID}", "reshelve_copy", d.catalogHandler.HandleReshelve},

		{http.MethodGet, "/patrons", "patrons", d.membershipHandler.HandlePatrons},
		{http.MethodGet, "/patron/{patronID}", "patron", d.HandlePatronPage},

		{http.MethodGet, "/transactions", "transactions", d.circulationHandler.HandleTransactions},
		{http.MethodGet, "/checked-out", "checked_out", d.circulationHandler.HandleCheckedOut},
		{http.MethodGet, "/stats", "stats", d.circulationHandler.HandleStats},

		{http.MethodPost, "/check-out", "checkout_start", checkout.create},
		{http.MethodGet, "/check-out/{sessionID}", "checkout_view", checkout.get},
		{http.MethodPut, "/check-out/{sessionID}/patron", "checkout_select_patron", d.handleSelectPatron(checkout)},
		{http.MethodPut, "/check-out/{sessionID}/copy", "checkout_select_copy", d.handleSelectCheckoutCopy(checkout)},
		{http.MethodPost, "/check-out/{sessionID}/next", "checkout_next", checkout.next},
		{http.MethodPost, "/check-out/{sessionID}/back", "checkout_back", checkout.back},
		{http.MethodPost, "/check-out/{sessionID}/retry", "checkout_retry", checkout.retry},
		{http.MethodPost, "/check-out/{sessionID}/dismiss", "checkout_dismiss", checkout.dismiss},
		{http.MethodPost, "/check-out/{sessionID}/reset", "checkout_reset", checkout.reset},
		{http.MethodDelete, "/check-out/{sessionID}", "checkout_end", checkout.remove},

		{http.MethodPost, "/check-in", "checkin_start", checkin.create},
		{http.MethodGet, "/check-in/{sessionID}", "checkin_view", checkin.get},
		{http.MethodPut, "/check-in/{sessionID}/copy", "checkin_select_copy", d.handleSelectCheckinCopy(checkin)},
		{http.MethodPut, "/check-in/{sessionID}/details", "checkin_details", d.handleCheckinDetails(checkin)},
		{http.MethodPost, "/check-in/{sessionID}/next", "checkin_next", checkin.next},
		{http.MethodPost, "/check-in/{sessionID}/back", "checkin_back", checkin.back},
		{http.MethodPost, "/check-in/{sessionID}/retry", "checkin_retry", checkin.retry},
		{http.MethodPost, "/check-in/{sessionID}/dismiss", "checkin_dismiss", checkin.dismiss},
		{http.MethodPost, "/check-in/{sessionID}/reset", "checkin_reset", checkin.reset},
		{http.MethodDelete, "/check-in/{sessionID}", "checkin_end", checkin.remove},

		{http.MethodGet, "/settings", "settings", d.HandleGetSettings},
		{http.MethodPut, "/settings", "update_settings", d.HandlePutSettings},
		{http.MethodGet, "/branch", "branch", d.HandleGetBranch},
		{http.MethodPut, "/branch", "select_branch", d.HandlePutBranch},
	}
}

// Router mounts the route table on a chi router.
func (d *Desk) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.logger))
	r.Use(middleware.Recoverer)

	for _, route := range d.Routes() {
		r.Method(route.Method, route.Pattern, route.Handler)
	}
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
