package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	dbtypes "github.com/campusfindz/campusfindz-backend/pkg/db/types"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
)

// PostDTO is the transport shape for lost and found reports.
type PostDTO struct {
	ID              uuid.UUID            `json:"id"`
	UserID          *uuid.UUID           `json:"user_id,omitempty"`
	Title           string               `json:"title"`
	PostType        enums.PostType       `json:"post_type"`
	ItemName        string               `json:"item_name"`
	Description     string               `json:"description"`
	Content         string               `json:"content"`
	LocationFound   *string              `json:"location_found,omitempty"`
	CurrentLocation *string              `json:"current_location,omitempty"`
	DateFound       *string              `json:"date_found,omitempty"`
	Tags            []string             `json:"tags"`
	PhotoIDs        []string             `json:"photo_ids"`
	ApprovalStatus  enums.ApprovalStatus `json:"admin_approval_status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// CreatePostDTO holds the fields accepted when filing a report.
// ApprovalStatus may only be supplied by admins.
type CreatePostDTO struct {
	Title           string                `json:"title" validate:"required"`
	PostType        string                `json:"post_type" validate:"required"`
	ItemName        string                `json:"item_name" validate:"required"`
	Description     string                `json:"description"`
	Content         string                `json:"content"`
	LocationFound   *string               `json:"location_found,omitempty"`
	CurrentLocation *string               `json:"current_location,omitempty"`
	DateFound       *string               `json:"date_found,omitempty"`
	Tags            []string              `json:"tags,omitempty"`
	PhotoIDs        []string              `json:"photo_ids,omitempty"`
	ApprovalStatus  *enums.ApprovalStatus `json:"admin_approval_status,omitempty"`
}

// UpdatePostDTO carries optional edits. Nil means "leave unchanged".
type UpdatePostDTO struct {
	Title           *string               `json:"title,omitempty"`
	PostType        *string               `json:"post_type,omitempty"`
	ItemName        *string               `json:"item_name,omitempty"`
	Description     *string               `json:"description,omitempty"`
	Content         *string               `json:"content,omitempty"`
	LocationFound   *string               `json:"location_found,omitempty"`
	CurrentLocation *string               `json:"current_location,omitempty"`
	DateFound       *string               `json:"date_found,omitempty"`
	Tags            *[]string             `json:"tags,omitempty"`
	PhotoIDs        *[]string             `json:"photo_ids,omitempty"`
	ApprovalStatus  *enums.ApprovalStatus `json:"admin_approval_status,omitempty"`
}

func FromModel(p *models.Post) *PostDTO {
	if p == nil {
		return nil
	}
	return &PostDTO{
		ID:              p.ID,
		UserID:          p.UserID,
		Title:           p.Title,
		PostType:        p.PostType,
		ItemName:        p.ItemName,
		Description:     p.Description,
		Content:         p.Content,
		LocationFound:   p.LocationFound,
		CurrentLocation: p.CurrentLocation,
		DateFound:       p.DateFound,
		Tags:            stringSlice(p.Tags),
		PhotoIDs:        stringSlice(p.PhotoIDs),
		ApprovalStatus:  p.ApprovalStatus,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func FromModels(rows []models.Post) []PostDTO {
	out := make([]PostDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func stringSlice(list dbtypes.StringList) []string {
	if list == nil {
		return []string{}
	}
	return append([]string(nil), []string(list)...)
}
