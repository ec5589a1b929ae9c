package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/comment/dto"
	"anoa.com/sparkvest/internal/modules/comment/repository"
	notifService "anoa.com/sparkvest/internal/modules/notification/service"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type ProjectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
}

type CommentService interface {
	List(ctx context.Context, viewer *entity.User, projectID uuid.UUID) ([]*dto.CommentResponse, error)
	PostComment(ctx context.Context, author *entity.User, projectID uuid.UUID, req dto.CreateCommentRequest) (*dto.CommentResponse, error)
	ReplyTo(ctx context.Context, author *entity.User, parentID uuid.UUID, req dto.CreateCommentRequest) (*dto.CommentResponse, error)
	ToggleLike(ctx context.Context, userID, commentID uuid.UUID) (*dto.LikeResponse, error)
	DeleteComment(ctx context.Context, actor *entity.User, commentID uuid.UUID) error
}

type commentService struct {
	repo     repository.CommentRepository
	projects ProjectFinder
	notifier notifService.Notifier
	policy   *bluemonday.Policy
}

func NewCommentService(repo repository.CommentRepository, projects ProjectFinder, notifier notifService.Notifier) CommentService {
	return &commentService{
		repo:     repo,
		projects: projects,
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
	}
}

// errProjectHidden matches the project detail response for an unapproved
// project the viewer may not see.
var errProjectHidden = apperror.Forbidden("You do not have permission to view this project.")

func (s *commentService) visibleProject(ctx context.Context, viewer *entity.User, id uuid.UUID) (*entity.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	if !project.VisibleTo(viewer) {
		return nil, errProjectHidden
	}
	return project, nil
}

func (s *commentService) findComment(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	return comment, nil
}

func (s *commentService) content(raw string) (string, error) {
	content := strings.TrimSpace(s.policy.Sanitize(raw))
	if content == "" {
		return "", apperror.Validation("Comment cannot be empty.")
	}
	return content, nil
}

func (s *commentService) List(ctx context.Context, viewer *entity.User, projectID uuid.UUID) ([]*dto.CommentResponse, error) {
	if _, err := s.visibleProject(ctx, viewer, projectID); err != nil {
		return nil, err
	}

	comments, err := s.repo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	ids := make([]uuid.UUID, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}

	likes, err := s.repo.LikeCounts(ctx, ids)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	liked := map[uuid.UUID]bool{}
	if viewer != nil {
		if liked, err = s.repo.LikedBy(ctx, viewer.ID, ids); err != nil {
			return nil, apperror.Persistence(err)
		}
	}

	return BuildTree(comments, likes, liked, viewer), nil
}

func (s *commentService) PostComment(ctx context.Context, author *entity.User, projectID uuid.UUID, req dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	content, err := s.content(req.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleProject(ctx, author, projectID); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		Content:   content,
		UserID:    author.ID,
		ProjectID: projectID,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, apperror.Persistence(err)
	}

	return toResponse(comment, 0, false, author), nil
}

func (s *commentService) ReplyTo(ctx context.Context, author *entity.User, parentID uuid.UUID, req dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	content, err := s.content(req.Content)
	if err != nil {
		return nil, err
	}

	parent, err := s.findComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	project, err := s.visibleProject(ctx, author, parent.ProjectID)
	if err != nil {
		return nil, err
	}

	reply := &entity.Comment{
		Content:   content,
		UserID:    author.ID,
		ProjectID: parent.ProjectID,
		ParentID:  &parent.ID,
	}
	if err := s.repo.Create(ctx, reply); err != nil {
		return nil, apperror.Persistence(err)
	}

	actorID := author.ID
	notifService.Notify(ctx, s.notifier, &entity.Notification{
		UserID:     parent.UserID,
		ActorID:    &actorID,
		EntityID:   reply.ID,
		EntityType: entity.NotificationEntityComment,
		Type:       entity.NotificationCommentReply,
		Message:    fmt.Sprintf("%s replied to your comment on %s", author.Username, project.Title),
	})

	return toResponse(reply, 0, false, author), nil
}

func (s *commentService) ToggleLike(ctx context.Context, userID, commentID uuid.UUID) (*dto.LikeResponse, error) {
	if _, err := s.findComment(ctx, commentID); err != nil {
		return nil, err
	}

	liked, count, err := s.repo.ToggleLike(ctx, userID, commentID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	return &dto.LikeResponse{Liked: liked, LikesCount: count}, nil
}

func (s *commentService) DeleteComment(ctx context.Context, actor *entity.User, commentID uuid.UUID) error {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !canDelete(actor, comment) {
		return apperror.Forbidden("You can only delete your own comments.")
	}

	deleted, err := s.repo.DeleteTree(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("comment: %w", apperror.ErrNotFound)
		}
		return apperror.Persistence(err)
	}

	logger.L().Info().
		Str("comment_id", commentID.String()).
		Str("actor_id", actor.ID.String()).
		Int64("removed", deleted).
		Msg("comment deleted")
	return nil
}
