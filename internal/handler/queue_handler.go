package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/service"
	"github.com/noah-isme/admin-api/pkg/jobs"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/response"
)

type queueService interface {
	Queues() []jobs.Stats
	FailedJobs(queue string) (*service.FailedJobList, error)
	Job(queue, id string) (*jobs.Job, error)
	Requeue(queue string, ids []string) (int, error)
	Delete(queue string, ids []string) (int, error)
}

// QueueHandler exposes background queue introspection to superusers.
type QueueHandler struct {
	service queueService
}

// NewQueueHandler constructs the handler.
func NewQueueHandler(svc queueService) *QueueHandler {
	return &QueueHandler{service: svc}
}

type jobIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// Queues godoc
// @Summary List queues with job counts
// @Tags Queues
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/queues [get]
func (h *QueueHandler) Queues(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Queues(), nil)
}

// FailedJobs godoc
// @Summary List failed jobs of a queue
// @Tags Queues
// @Produce json
// @Param queue path string true "Queue name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/queues/{queue}/failed [get]
func (h *QueueHandler) FailedJobs(c *gin.Context) {
	list, err := h.service.FailedJobs(c.Param("queue"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Job godoc
// @Summary Get one job
// @Tags Queues
// @Produce json
// @Param queue path string true "Queue name"
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/queues/{queue}/jobs/{id} [get]
func (h *QueueHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Param("queue"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Requeue godoc
// @Summary Requeue failed jobs
// @Tags Queues
// @Accept json
// @Produce json
// @Param queue path string true "Queue name"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/queues/{queue}/requeue [post]
func (h *QueueHandler) Requeue(c *gin.Context) {
	var req jobIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "ids are required"))
		return
	}
	n, err := h.service.Requeue(c.Param("queue"), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"requeued": n}, nil)
}

// DeleteJobs godoc
// @Summary Delete jobs
// @Tags Queues
// @Accept json
// @Produce json
// @Param queue path string true "Queue name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/queues/{queue}/delete [post]
func (h *QueueHandler) DeleteJobs(c *gin.Context) {
	var req jobIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "ids are required"))
		return
	}
	n, err := h.service.Delete(c.Param("queue"), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": n}, nil)
}
