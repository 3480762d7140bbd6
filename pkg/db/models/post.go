package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/campusfindz/campusfindz-backend/pkg/db/types"
	"github.com/campusfindz/campusfindz-backend/pkg/enums"
)

// Post is a lost/found item report. UserID is nullable: posts survive the
// deletion of their creator as orphans. ApprovalStatus is fixed at creation
// from the creator's admin flag and only changed by explicit admin edits.
type Post struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *uuid.UUID           `gorm:"column:user_id" json:"user_id,omitempty"`
	Title           string               `gorm:"type:text;not null" json:"title"`
	PostType        enums.PostType       `gorm:"column:post_type;type:text;not null" json:"post_type"`
	ItemName        string               `gorm:"column:item_name;type:text;not null" json:"item_name"`
	Description     string               `gorm:"type:text" json:"description"`
	Content         string               `gorm:"type:text" json:"content"`
	LocationFound   *string              `gorm:"column:location_found;type:text" json:"location_found,omitempty"`
	CurrentLocation *string              `gorm:"column:current_location;type:text" json:"current_location,omitempty"`
	DateFound       *string              `gorm:"column:date_found;type:text" json:"date_found,omitempty"`
	Tags            dbtypes.StringList   `gorm:"type:text" json:"tags"`
	PhotoIDs        dbtypes.StringList   `gorm:"column:photo_ids;type:text" json:"photo_ids"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:admin_approval_status;type:text;not null" json:"admin_approval_status"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
