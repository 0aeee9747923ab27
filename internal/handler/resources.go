package handler

import (
	"auth_gateway/internal/models"
	"auth_gateway/internal/service"
	"auth_gateway/internal/storage"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

type resourceIDResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type resourceListResponse struct {
	Message string            `json:"message"`
	Data    []models.Resource `json:"data"`
}

// POST /actions/create
func (h *Handler) CreateResource(c *gin.Context) {
	const op = "handler.CreateResource"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	fields, ok := h.payload(c, log, createSchema)
	if !ok {
		return
	}

	r, err := toNewResource(fields)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())

		return
	}

	id, err := h.resourceService.Create(c.Request.Context(), CurrentUser(c), r)
	if err != nil {
		log.Error("failed to create resource", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	log.Debug("resource created", slog.Int64("id", id))

	c.JSON(http.StatusCreated, resourceIDResponse{Message: "Resource created", ID: id})
}

// GET /actions/read
func (h *Handler) ReadResources(c *gin.Context) {
	const op = "handler.ReadResources"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	resources, err := h.resourceService.List(c.Request.Context(), CurrentUser(c))
	if err != nil {
		log.Error("failed to read resources", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	c.JSON(http.StatusOK, resourceListResponse{Message: "Resources retrieved", Data: resources})
}

// POST /actions/update
func (h *Handler) UpdateResource(c *gin.Context) {
	const op = "handler.UpdateResource"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	fields, ok := h.payload(c, log, updateSchema)
	if !ok {
		return
	}

	id, err := resourceID(fields)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())

		return
	}

	patch, err := toPatch(fields)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())

		return
	}

	err = h.resourceService.Update(c.Request.Context(), CurrentUser(c), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFieldsToUpdate):
			newErrorResponse(c, http.StatusBadRequest, "No fields to update")
		case errors.Is(err, storage.ErrResourceNotFound):
			newErrorResponse(c, http.StatusNotFound, "Resource not found")
		default:
			log.Error("failed to update resource", slog.Int64("id", id), slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, msgInternal)
		}

		return
	}

	c.JSON(http.StatusOK, resourceIDResponse{Message: "Resource updated", ID: id})
}

// DELETE /actions/delete
func (h *Handler) DeleteResource(c *gin.Context) {
	const op = "handler.DeleteResource"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	fields, ok := h.payload(c, log, deleteSchema)
	if !ok {
		return
	}

	id, err := resourceID(fields)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())

		return
	}

	err = h.resourceService.Delete(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		if errors.Is(err, storage.ErrResourceNotFound) {
			newErrorResponse(c, http.StatusNotFound, "Resource not found")

			return
		}

		log.Error("failed to delete resource", slog.Int64("id", id), slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	c.JSON(http.StatusOK, resourceIDResponse{Message: "Resource deleted", ID: id})
}

func (h *Handler) payload(c *gin.Context, log *slog.Logger, schema *gojsonschema.Schema) (map[string]json.RawMessage, bool) {
	fields, err := readPayload(c.Request.Body, schema)
	if err != nil {
		var verr *validationError
		if errors.As(err, &verr) {
			newErrorResponse(c, http.StatusBadRequest, verr.Error())

			return nil, false
		}

		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return nil, false
	}

	return fields, true
}
