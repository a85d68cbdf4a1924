package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/pkg/response"
	"github.com/shashiranjanraj/vidyapay/pkg/router"
)

type TransactionController struct {
	service *services.TransactionService
}

func NewTransactionController(service *services.TransactionService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) List(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.List(r.Context(), parseListQuery(r))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, result)
}

func (c *TransactionController) Schools(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.Schools(r.Context())
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, entries)
}

func (c *TransactionController) BySchool(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.BySchool(r.Context(), router.Param(r, "schoolId"))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, result)
}

func (c *TransactionController) Status(w http.ResponseWriter, r *http.Request) {
	row, err := c.service.StatusByCustomOrderID(r.Context(), router.Param(r, "custom_order_id"))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, row)
}

// parseListQuery reads the pagination/filter query params. Values the
// service would reject are left for ListQuery.Normalize to clamp.
func parseListQuery(r *http.Request) services.ListQuery {
	q := r.URL.Query()

	query := services.ListQuery{
		Sort: q.Get("sort"),
		Desc: q.Get("order") != "asc",
	}
	query.Page, _ = strconv.Atoi(q.Get("page"))
	query.Limit, _ = strconv.Atoi(q.Get("limit"))

	query.SchoolIDs = splitCSV(q.Get("school_ids"))
	query.Statuses = splitCSV(q.Get("status"))

	if t, ok := parseTime(q.Get("from")); ok {
		query.TimeFrom = &t
	}
	if t, ok := parseTime(q.Get("to")); ok {
		query.TimeTo = &t
	}
	return query
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
