package handlers

import (
	"net/http"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

type TaskHandler struct {
	taskService services.TaskService
	logger      log.FieldLogger
}

func NewTaskHandler(taskService services.TaskService, logger log.FieldLogger) *TaskHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskHandler{taskService: taskService, logger: logger}
}

func (h *TaskHandler) RegisterRoutes(r gin.IRouter) {
	tasks := r.Group("/tasks")
	tasks.POST("", h.CreateTask)
	tasks.GET("", h.ListTasks)
	tasks.GET("/:id", h.GetTask)
	tasks.PUT("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.POST("/:id/tags", h.AddTag)
	tasks.DELETE("/:id/tags/:tag", h.RemoveTag)
}

func (h *TaskHandler) taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: []models.FieldError{{Field: "id", Message: "must be a UUID"}},
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleTaskError(c, h.logger, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), req)
	if err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), id)
	if err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		handleTaskError(c, h.logger, err)
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), q)
	if err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleTaskError(c, h.logger, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), id, req)
	if err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id); err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) AddTag(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var req models.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.taskService.AddTag(c.Request.Context(), id, req.Tag); err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *TaskHandler) RemoveTag(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.RemoveTag(c.Request.Context(), id, c.Param("tag")); err != nil {
		handleTaskError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
