package service

import (
	"context"
	"fmt"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/notification/dto"
	notifRepo "anoa.com/sparkvest/internal/modules/notification/repository"
	"anoa.com/sparkvest/pkg/apperror"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/realtime"
	"github.com/google/uuid"
)

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Notifier is the narrow view other modules use to emit notifications.
type Notifier interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
}

type notificationService struct {
	repo   notifRepo.NotificationRepository
	broker realtime.Broker
}

func NewNotificationService(repo notifRepo.NotificationRepository, broker realtime.Broker) NotificationService {
	return &notificationService{
		repo:   repo,
		broker: broker,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if notification.ActorID != nil && *notification.ActorID == notification.UserID {
		return nil
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.broker != nil {
		if err := realtime.PublishJSON(ctx, s.broker, realtime.UserChannel(notification.UserID), notification); err != nil {
			logger.L().Warn().Err(err).Str("user_id", notification.UserID.String()).Msg("failed to publish notification")
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (*dto.NotificationListResponse, error) {
	offset := (filter.Page - 1) * filter.Limit
	notifications, total, err := s.repo.GetByUserID(ctx, userID, filter.Limit, offset)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}

	return &dto.NotificationListResponse{
		Data: notifications,
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return apperror.Persistence(err)
	}
	if !ok {
		return fmt.Errorf("notification: %w", apperror.ErrNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Persistence(err)
	}
	return count, nil
}

// Notify sends n through notifier and logs instead of failing the caller.
func Notify(ctx context.Context, notifier Notifier, n *entity.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.CreateNotification(ctx, n); err != nil {
		logger.L().Warn().Err(err).Str("type", n.Type).Str("user_id", n.UserID.String()).Msg("failed to create notification")
	}
}
