package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thejonthinator/frysen/api/controllers"
	"github.com/thejonthinator/frysen/api/middleware"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/pkg/config"
	"github.com/thejonthinator/frysen/pkg/logger"
)

// Deps are the collaborators the router wires into handlers. Realtime and
// Gatherer are optional.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Engine   engine.Service
	Realtime http.Handler
	Gatherer prometheus.Gatherer
	Ready    map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	svc := deps.Engine

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", controllers.State(svc))
		r.Get("/export", controllers.Export(svc, logg))
		r.Post("/import", controllers.Import(svc, logg))

		r.Put("/drawers", controllers.ReplaceDrawers(svc, logg))
		r.Route("/drawers/{drawerId}/items", func(r chi.Router) {
			r.Post("/", controllers.AddItems(svc, logg))
			r.Patch("/{index}", controllers.EditItem(svc, logg))
			r.Delete("/{index}", controllers.RemoveItem(svc, logg))
			r.Post("/{index}/increase", controllers.IncreaseQuantity(svc, logg))
			r.Post("/{index}/decrease", controllers.DecreaseQuantity(svc, logg))
			r.Post("/{index}/to-shopping-list", controllers.MoveToShoppingList(svc, logg))
		})
		r.Post("/items/move", controllers.MoveItem(svc, logg))

		r.Route("/shopping", func(r chi.Router) {
			r.Get("/", controllers.ShoppingList(svc))
			r.Post("/", controllers.AddShoppingItem(svc, logg))
			r.Post("/clear-completed", controllers.ClearCompletedShoppingItems(svc, logg))
			r.Post("/{itemId}/toggle", controllers.ToggleShoppingItem(svc, logg))
			r.Patch("/{itemId}", controllers.EditShoppingItem(svc, logg))
			r.Delete("/{itemId}", controllers.RemoveShoppingItem(svc, logg))
		})

		r.Route("/containers", func(r chi.Router) {
			r.Get("/", controllers.Containers(svc))
			r.Post("/", controllers.AddContainer(svc, logg))
			r.Patch("/{containerId}", controllers.UpdateContainer(svc, logg))
			r.Delete("/{containerId}", controllers.DeleteContainer(svc, logg))
			r.Post("/{containerId}/drawers", controllers.AddDrawer(svc, logg))
			r.Put("/{containerId}/drawer-order", controllers.ReorderDrawers(svc, logg))
			r.Patch("/{containerId}/drawers/{drawerId}", controllers.UpdateDrawer(svc, logg))
			r.Delete("/{containerId}/drawers/{drawerId}", controllers.DeleteDrawer(svc, logg))
		})

		r.Get("/display", controllers.DisplayMode(svc))
		r.Post("/display/toggle", controllers.ToggleDisplay(svc, logg))
		r.Get("/suggestions", controllers.Suggestions(svc))
		r.Get("/duration", controllers.DurationText(svc, logg))

		r.Route("/family", func(r chi.Router) {
			r.Get("/", controllers.FamilyStatus(svc))
			r.Post("/", controllers.CreateFamily(svc, logg))
			r.Delete("/", controllers.LeaveFamily(svc, logg))
			r.Post("/join", controllers.JoinFamily(svc, logg))
			r.Post("/sync", controllers.SyncNow(svc, logg))
			r.Post("/refetch", controllers.Refetch(svc, logg))
		})

		r.Route("/updates", func(r chi.Router) {
			r.Get("/", controllers.UpdateStatus(svc))
			r.Post("/check", controllers.CheckForUpdates(svc, logg))
		})
	})

	return r
}
