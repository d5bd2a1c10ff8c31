// Package projects implements HTTP handlers for project management.
package projects

import (
	"time"

	"upmon/internal/storage"
)

// ProjectRequest is the payload for creating or patching a project.
//
// label is required on create.
type ProjectRequest struct {
	Label       *string   `json:"label,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string   `json:"description,omitempty" binding:"omitempty,max=1000"`
	Tags        *[]string `json:"tags,omitempty"`
}

func (r ProjectRequest) empty() bool {
	return r.Label == nil && r.Description == nil && r.Tags == nil
}

func (r ProjectRequest) input() storage.ProjectInput {
	in := storage.ProjectInput{}
	if r.Label != nil {
		in.Label = *r.Label
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Tags != nil {
		in.Tags = *r.Tags
	}
	return in
}

func (r ProjectRequest) patch() storage.ProjectPatch {
	return storage.ProjectPatch{
		Label:       r.Label,
		Description: r.Description,
		Tags:        r.Tags,
	}
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID          int64     `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(p *storage.Project) ProjectResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProjectResponse{
		ID:          p.ID,
		Label:       p.Label,
		Description: p.Description,
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
