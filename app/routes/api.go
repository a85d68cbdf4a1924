package routes

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/vidyapay/app/controllers"
	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
	"github.com/shashiranjanraj/vidyapay/pkg/metrics"
	"github.com/shashiranjanraj/vidyapay/pkg/middleware"
	"github.com/shashiranjanraj/vidyapay/pkg/rbac"
	"github.com/shashiranjanraj/vidyapay/pkg/reqid"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
	"github.com/shashiranjanraj/vidyapay/pkg/router"
)

// Controllers bundles everything RegisterAPI mounts.
type Controllers struct {
	Auth        *controllers.AuthController
	Payment     *controllers.PaymentController
	Webhook     *controllers.WebhookController
	Transaction *controllers.TransactionController
}

// RegisterAPI mounts the full route table. The webhook stays outside the
// auth group: the gateway cannot carry our tokens.
func RegisterAPI(r *router.Router, tokens *auth.Tokens, c Controllers) {
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(300, time.Minute))

	r.Get("/", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]any{"ok": true, "service": "vidyapay"})
	})
	r.Get("/metrics", "metrics", metrics.Handler())

	r.Post("/webhook", "webhook.receive", c.Webhook.Receive)

	r.Post("/auth/register", "auth.register", c.Auth.Register)
	r.Post("/auth/login", "auth.login", c.Auth.Login)

	authed := r.Group("", middleware.Auth(tokens))
	admin := authed.Group("", rbac.HasRole(models.RoleAdmin))

	admin.Post("/auth/admin/create", "auth.admin.create", c.Auth.CreateAdmin)

	authed.Post("/payments/create-payment", "payments.create", c.Payment.Create,
		rbac.HasRole(models.RoleStudent, models.RoleAdmin))
	admin.Get("/payments/check/{collect_request_id}", "payments.check", c.Payment.Check)

	admin.Get("/transactions", "transactions.list", c.Transaction.List)
	admin.Get("/transactions/schools", "transactions.schools", c.Transaction.Schools)
	admin.Get("/transactions/school/{schoolId}", "transactions.by_school", c.Transaction.BySchool)
	authed.Get("/transactions/status/{custom_order_id}", "transactions.status", c.Transaction.Status)
}
