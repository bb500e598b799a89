package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// ResourceHandler is the HTTP face of the endpoint template. One instance
// serves every registered kind; routes are bound to a kind name at
// registration time.
type ResourceHandler struct {
	service ports.ResourceService
}

func NewResourceHandler(service ports.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// List handles GET /<kind>/. The response is a bare JSON array of records.
//
// @Summary      List records of a kind visible to the requester
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   map[string]any
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /{kind}/ [get]
func (h *ResourceHandler) List(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		in := ports.ListInput{
			Principal: principalOf(c),
			Filters:   map[string]string{},
		}
		for name, values := range c.QueryParams() {
			if len(values) == 0 {
				continue
			}
			if name == "limit" {
				if n, err := strconv.ParseInt(values[0], 10, 64); err == nil && n > 0 {
					in.Limit = n
				}
				continue
			}
			in.Filters[name] = values[0]
		}

		records, err := h.service.List(c.Request().Context(), kind, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, records)
	}
}

// Retrieve handles GET /<kind>/{id}/.
func (h *ResourceHandler) Retrieve(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := recordID(c)
		if err != nil {
			return err
		}
		rec, err := h.service.Retrieve(c.Request().Context(), kind, id, principalOf(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

// Create handles POST /<kind>/.
func (h *ResourceHandler) Create(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := bindBody(c)
		if err != nil {
			return err
		}
		rec, err := h.service.Create(c.Request().Context(), kind, ports.WriteInput{
			Principal: principalOf(c),
			Body:      body,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, rec)
	}
}

// Update handles PUT (full) and PATCH (partial) on /<kind>/{id}/.
func (h *ResourceHandler) Update(kind string, partial bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := recordID(c)
		if err != nil {
			return err
		}
		body, err := bindBody(c)
		if err != nil {
			return err
		}
		rec, err := h.service.Update(c.Request().Context(), kind, id, ports.WriteInput{
			Principal: principalOf(c),
			Body:      body,
			Partial:   partial,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

// Delete handles DELETE /<kind>/{id}/.
func (h *ResourceHandler) Delete(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := recordID(c)
		if err != nil {
			return err
		}
		if err := h.service.Delete(c.Request().Context(), kind, id, principalOf(c)); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// BulkDelete handles POST /<kind>/bulk_delete/. Ids outside the caller's
// scope are silently dropped; the response reports the count removed.
func (h *ResourceHandler) BulkDelete(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkDeleteRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		result, err := h.service.BulkDelete(c.Request().Context(), kind, req.IDs, principalOf(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

// Action handles POST /<kind>/{id}/<action>/.
func (h *ResourceHandler) Action(kind, action string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := recordID(c)
		if err != nil {
			return err
		}
		body, err := bindBody(c)
		if err != nil {
			return err
		}
		result, err := h.service.Action(c.Request().Context(), kind, action, id, ports.ActionInput{
			Principal: principalOf(c),
			Body:      body,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

// recordID parses the id path parameter. A malformed id reads as a missing
// record, consistent with out-of-scope ids.
func recordID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

// bindBody decodes a JSON object body. An empty body reads as an empty
// object so bodiless custom actions work.
func bindBody(c echo.Context) (map[string]any, error) {
	body := map[string]any{}
	if c.Request().ContentLength == 0 {
		return body, nil
	}
	if err := c.Bind(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return body, nil
}
