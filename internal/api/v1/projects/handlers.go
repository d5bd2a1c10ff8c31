package projects

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"upmon/internal/api/types"
	"upmon/internal/storage"
)

// Handler manages project endpoints.
type Handler struct {
	storage *storage.Store
}

// NewHandler creates a project handler.
func NewHandler(storage *storage.Store) *Handler {
	return &Handler{storage: storage}
}

// List handles GET /api/v1/projects
//
// Returns:
//   - 200 OK with every project ordered by ID
//   - 500 Internal Server Error on storage failure
func (h *Handler) List(c *gin.Context) {
	projects, err := h.storage.ListProjects(c.Request.Context())
	if err != nil {
		types.AbortWithError(c, types.InternalError("failed to retrieve projects", err))
		return
	}

	responses := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, toResponse(&projects[i]))
	}

	c.JSON(http.StatusOK, types.SuccessResponse(responses))
}

// Create handles POST /api/v1/projects
//
// Returns:
//   - 201 Created with the project
//   - 400 Bad Request for invalid input
//   - 500 Internal Server Error on storage failure
func (h *Handler) Create(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}
	if req.Label == nil {
		types.AbortWithError(c, types.ValidationError("label is required"))
		return
	}

	project, err := storage.NewProject(req.input())
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to create project"))
		return
	}

	if err := h.storage.CreateProject(c.Request.Context(), project); err != nil {
		types.AbortWithError(c, types.InternalError("failed to create project", err))
		return
	}

	c.JSON(http.StatusCreated, types.SuccessResponse(toResponse(project)))
}

// Get handles GET /api/v1/projects/:id
//
// Returns:
//   - 200 OK with the project
//   - 400 Bad Request for an invalid ID
//   - 404 Not Found if the project does not exist
func (h *Handler) Get(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.storage.FindProject(c.Request.Context(), id)
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to retrieve project"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(toResponse(project)))
}

// Update handles PATCH /api/v1/projects/:id
//
// Only provided fields are modified.
//
// Returns:
//   - 200 OK with the updated project
//   - 400 Bad Request for invalid input or an empty payload
//   - 404 Not Found if the project does not exist
func (h *Handler) Update(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "project")
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}
	if req.empty() {
		types.AbortWithError(c, types.ValidationError("no fields to update"))
		return
	}

	ctx := c.Request.Context()
	project, err := h.storage.FindProject(ctx, id)
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to retrieve project"))
		return
	}

	updated, err := project.Apply(req.patch())
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to update project"))
		return
	}

	if err := h.storage.UpdateProject(ctx, updated); err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to update project"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(toResponse(updated)))
}

// Delete handles DELETE /api/v1/projects/:id
//
// Monitors of the project and their history are removed with it.
//
// Returns:
//   - 200 OK on deletion
//   - 404 Not Found if the project does not exist
func (h *Handler) Delete(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.storage.DeleteProject(c.Request.Context(), id); err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to delete project"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"message": "project deleted successfully",
	}))
}
