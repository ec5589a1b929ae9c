package dto

import (
	"anoa.com/sparkvest/internal/entity"
	commonDto "anoa.com/sparkvest/pkg/dto"
)

type NotificationFilter struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

type NotificationListResponse struct {
	Data []entity.Notification    `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
