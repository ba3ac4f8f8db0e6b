package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/tasksync/internal/api"
	"github.com/existflow/tasksync/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func toDto(t Task) api.TaskDto {
	return api.TaskDto{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   api.FormatTime(t.CreatedAt),
		UpdatedAt:   api.FormatTime(t.UpdatedAt),
	}
}

// parseOr parses a wire timestamp, falling back when it is missing or invalid
func parseOr(s string, fallback time.Time) time.Time {
	if t, err := api.ParseTime(s); err == nil {
		return t
	}
	return fallback
}

// handleListTasks returns all tasks, or those updated at or after since
func (s *Server) handleListTasks(c echo.Context) error {
	since := c.QueryParam("since")
	if since == "" {
		since = c.QueryParam("updatedAt_gte")
	}

	var from time.Time
	if since != "" {
		t, err := api.ParseTime(since)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid since timestamp"})
		}
		from = t
	}

	tasks, err := s.store.ListTasks(c.Request().Context(), from)
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	dtos := make([]api.TaskDto, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, toDto(t))
	}
	return c.JSON(http.StatusOK, dtos)
}

// handleCreateTask stores a new task. Client ids are kept unless they are
// temporary local ids, which get a server id.
func (s *Server) handleCreateTask(c echo.Context) error {
	var req api.TaskDto
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	id := req.ID
	if id == "" || model.IsLocalID(id) {
		id = "task-" + uuid.NewString()
	}

	now := model.Truncate(s.now())
	updatedAt := parseOr(req.UpdatedAt, now)
	createdAt := parseOr(req.CreatedAt, updatedAt)

	task := Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}

	err := s.store.CreateTask(c.Request().Context(), task)
	if errors.Is(err, ErrTaskExists) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Task already exists"})
	}
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusCreated, toDto(task))
}

// handleUpdateTask replaces a task, keeping its createdAt and stamping
// updatedAt with the server clock
func (s *Server) handleUpdateTask(c echo.Context) error {
	id := c.Param("id")

	var req api.TaskDto
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	existing, err := s.store.GetTask(ctx, id)
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if existing == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
	}

	task := Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   model.Truncate(s.now()),
	}
	if task.UpdatedAt.Before(task.CreatedAt) {
		task.UpdatedAt = task.CreatedAt
	}

	err = s.store.UpdateTask(ctx, task)
	if errors.Is(err, ErrTaskMissing) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
	}
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, toDto(task))
}

// handleDeleteTask removes a task
func (s *Server) handleDeleteTask(c echo.Context) error {
	err := s.store.DeleteTask(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrTaskMissing) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
	}
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}
