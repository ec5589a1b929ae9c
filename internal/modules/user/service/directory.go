package service

import (
	"context"
	"strings"

	"anoa.com/sparkvest/internal/modules/user/repository"
	"anoa.com/sparkvest/pkg/apperror"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"github.com/google/uuid"
)

const (
	minSearchLength = 2
	searchLimit     = 10
)

// DirectoryService backs the team-member picker and admin autocomplete.
type DirectoryService interface {
	SearchUsers(ctx context.Context, callerID uuid.UUID, query string) ([]commonDto.UserSummary, error)
}

type directoryService struct {
	repo repository.UserRepository
}

func NewDirectoryService(repo repository.UserRepository) DirectoryService {
	return &directoryService{repo: repo}
}

func (s *directoryService) SearchUsers(ctx context.Context, callerID uuid.UUID, query string) ([]commonDto.UserSummary, error) {
	query = strings.TrimSpace(query)
	results := make([]commonDto.UserSummary, 0)
	if len([]rune(query)) < minSearchLength {
		return results, nil
	}

	users, err := s.repo.Search(ctx, query, callerID, searchLimit)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	for _, u := range users {
		results = append(results, commonDto.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return results, nil
}
