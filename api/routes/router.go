package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adityahutama/pasarsegar-backend/api/controllers"
	"github.com/adityahutama/pasarsegar-backend/api/middleware"
	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	checkoutsvc "github.com/adityahutama/pasarsegar-backend/internal/checkout"
	"github.com/adityahutama/pasarsegar-backend/internal/pricing"
	"github.com/adityahutama/pasarsegar-backend/pkg/clock"
	"github.com/adityahutama/pasarsegar-backend/pkg/config"
	"github.com/adityahutama/pasarsegar-backend/pkg/db"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ledger *cart.Ledger,
	engine *pricing.Engine,
	clk clock.Clock,
	sequencer *checkoutsvc.Sequencer,
	directory checkoutsvc.AddressDirectory,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(ledger, engine, clk, logg))
			r.Delete("/", controllers.CartClear(ledger, logg))
			r.Post("/lines", controllers.CartAddLine(ledger, engine, clk, logg))
			r.Patch("/lines/{lineId}", controllers.CartSetQuantity(ledger, engine, clk, logg))
			r.Delete("/lines/{lineId}", controllers.CartRemoveLine(ledger, engine, clk, logg))
			r.Post("/merge", controllers.CartMerge(ledger, engine, clk, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(directory, logg))
			r.Post("/", controllers.AddressCreate(directory, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutRun(sequencer, ledger, logg))
			r.Get("/status", controllers.CheckoutStatus(sequencer))
		})
	})

	return r
}
