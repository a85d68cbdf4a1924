package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/pkg/bind"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
	"github.com/shashiranjanraj/vidyapay/pkg/router"
)

type PaymentController struct {
	service *services.PaymentService
}

func NewPaymentController(service *services.PaymentService) *PaymentController {
	return &PaymentController{service: service}
}

func (c *PaymentController) Create(w http.ResponseWriter, r *http.Request) {
	var body services.CreatePaymentRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := c.service.CreatePayment(r.Context(), body)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Created(w, result)
}

// Check polls the gateway for one collect request and reconciles the stored
// status. school_id comes from the query string and falls back to the
// configured default.
func (c *PaymentController) Check(w http.ResponseWriter, r *http.Request) {
	collectRequestID := router.Param(r, "collect_request_id")
	schoolID := r.URL.Query().Get("school_id")

	result, err := c.service.CheckStatus(r.Context(), collectRequestID, schoolID)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, result)
}
