package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const projectsIndex = "projects"

// ErrUnavailable means no search backend is configured; callers fall back to the database.
var ErrUnavailable = errors.New("search index unavailable")

type ProjectIndex interface {
	IndexProjects(ctx context.Context, projects []entity.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	// Search returns matching project ids ordered by relevance.
	Search(ctx context.Context, query string, limit, offset int) ([]uuid.UUID, int64, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

// NewProjectIndex returns a Meilisearch-backed index, or one that always
// reports ErrUnavailable when host is empty.
func NewProjectIndex(host, apiKey string) ProjectIndex {
	if host == "" {
		return disabledIndex{}
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host
	}

	s := &meiliSearchService{
		client:    meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	log := logger.With("search")

	filterable := []any{"category", "owner_id"}
	if _, err := s.client.Index(projectsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Warn().Err(err).Msg("failed to update projects filterable attributes")
	}

	sortable := []string{"created_at", "current_amount", "end_date"}
	if _, err := s.client.Index(projectsIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Warn().Err(err).Msg("failed to update projects sortable attributes")
	}

	searchable := []string{"title", "short_description", "description", "category", "owner"}
	if _, err := s.client.Index(projectsIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Warn().Err(err).Msg("failed to update projects searchable attributes")
	}
}

type projectDoc struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	ShortDescription string  `json:"short_description"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Owner            string  `json:"owner"`
	OwnerID          string  `json:"owner_id"`
	CurrentAmount    float64 `json:"current_amount"`
	CreatedAt        int64   `json:"created_at"`
	EndDate          int64   `json:"end_date"`
}

func (s *meiliSearchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) toDoc(p *entity.Project) projectDoc {
	doc := projectDoc{
		ID:               p.ID.String(),
		Title:            s.cleanContentForIndex(p.Title),
		ShortDescription: s.cleanContentForIndex(p.ShortDescription),
		Description:      s.cleanContentForIndex(p.Description),
		Category:         p.Category,
		OwnerID:          p.UserID.String(),
		CurrentAmount:    p.CurrentAmount,
		CreatedAt:        p.CreatedAt.Unix(),
		EndDate:          p.EndDate.Unix(),
	}
	if p.Owner != nil {
		doc.Owner = p.Owner.Username
	}
	return doc
}

// IndexProjects upserts approved projects; anything else is removed from the index.
func (s *meiliSearchService) IndexProjects(ctx context.Context, projects []entity.Project) error {
	docs := make([]projectDoc, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		if p.Status != entity.ProjectApproved {
			if err := s.DeleteProject(ctx, p.ID); err != nil {
				return err
			}
			continue
		}
		docs = append(docs, s.toDoc(p))
	}
	if len(docs) == 0 {
		return nil
	}

	task, err := s.client.Index(projectsIndex).AddDocuments(docs, strPtr("id"))
	if err != nil {
		return err
	}
	logger.L().Debug().Int("count", len(docs)).Int64("task_uid", task.TaskUID).Msg("indexed projects")
	return nil
}

func (s *meiliSearchService) DeleteProject(_ context.Context, id uuid.UUID) error {
	_, err := s.client.Index(projectsIndex).DeleteDocument(id.String())
	return err
}

func (s *meiliSearchService) Search(_ context.Context, query string, limit, offset int) ([]uuid.UUID, int64, error) {
	res, err := s.client.Index(projectsIndex).Search(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		Offset:               int64(offset),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, err
	}

	raw, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, 0, err
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, res.EstimatedTotalHits, nil
}

type disabledIndex struct{}

func (disabledIndex) IndexProjects(context.Context, []entity.Project) error { return nil }

func (disabledIndex) DeleteProject(context.Context, uuid.UUID) error { return nil }

func (disabledIndex) Search(context.Context, string, int, int) ([]uuid.UUID, int64, error) {
	return nil, 0, ErrUnavailable
}

func strPtr(s string) *string {
	return &s
}
