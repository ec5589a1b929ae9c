package service

import (
	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/comment/dto"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

// BuildTree nests comments under their parents, keeping creation order.
// Comments whose parent is missing from the input are dropped.
func BuildTree(comments []entity.Comment, likes map[uuid.UUID]int64, liked map[uuid.UUID]bool, viewer *entity.User) []*dto.CommentResponse {
	nodes := make(map[uuid.UUID]*dto.CommentResponse, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = toResponse(&comments[i], likes[comments[i].ID], liked[comments[i].ID], viewer)
	}

	roots := make([]*dto.CommentResponse, 0)
	for i := range comments {
		c := &comments[i]
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}
	return roots
}

func toResponse(c *entity.Comment, likes int64, liked bool, viewer *entity.User) *dto.CommentResponse {
	res := &dto.CommentResponse{
		ID:         c.ID,
		ProjectID:  c.ProjectID,
		ParentID:   c.ParentID,
		Content:    c.Content,
		LikesCount: likes,
		Liked:      liked,
		CanDelete:  canDelete(viewer, c),
		Replies:    []*dto.CommentResponse{},
		CreatedAt:  c.CreatedAt,
	}
	if c.Author != nil {
		res.Author = commonDto.UserSummary{ID: c.Author.ID, Username: c.Author.Username, Email: c.Author.Email}
	} else {
		res.Author = commonDto.UserSummary{ID: c.UserID, Username: "Unknown"}
	}
	return res
}

func canDelete(actor *entity.User, c *entity.Comment) bool {
	if actor == nil {
		return false
	}
	return actor.ID == c.UserID || actor.Role == entity.RoleAdmin
}
