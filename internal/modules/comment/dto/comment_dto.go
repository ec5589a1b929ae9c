package dto

import (
	"time"

	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type CommentResponse struct {
	ID         uuid.UUID             `json:"id"`
	ProjectID  uuid.UUID             `json:"project_id"`
	ParentID   *uuid.UUID            `json:"parent_id,omitempty"`
	Content    string                `json:"content"`
	Author     commonDto.UserSummary `json:"author"`
	LikesCount int64                 `json:"likes_count"`
	Liked      bool                  `json:"liked"`
	CanDelete  bool                  `json:"can_delete"`
	Replies    []*CommentResponse    `json:"replies"`
	CreatedAt  time.Time             `json:"created_at"`
}

type LikeResponse struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}
