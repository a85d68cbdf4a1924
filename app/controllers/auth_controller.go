// Package controllers translates HTTP requests into service calls and
// service results into JSON envelopes. No business logic lives here.
package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/pkg/bind"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := c.service.Register(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Created(w, result)
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := c.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, result)
}

// CreateAdmin provisions an administrator account. The route guards this
// behind the admin role.
func (c *AuthController) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	user, err := c.service.CreateAdmin(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Created(w, user)
}
