package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/pkg/bind"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
)

type WebhookController struct {
	service *services.WebhookService
}

func NewWebhookController(service *services.WebhookService) *WebhookController {
	return &WebhookController{service: service}
}

// Receive ingests a gateway callback. Unknown orders still get a 200 so the
// gateway stops retrying; only processing failures surface as errors.
func (c *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := bind.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := c.service.Process(r.Context(), r.Header, body); err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, map[string]any{"ok": true})
}
