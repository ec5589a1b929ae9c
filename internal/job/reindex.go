package job

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/sparkvest/internal/entity"
	searchService "anoa.com/sparkvest/internal/modules/search/service"
	"anoa.com/sparkvest/pkg/logger"
)

const reindexBatch = 100

type ApprovedLister interface {
	ListApproved(ctx context.Context, offset, limit int) ([]entity.Project, error)
}

// ReindexJob pushes every approved project to the search index in batches.
type ReindexJob struct {
	projects ApprovedLister
	index    searchService.ProjectIndex
	schedule string
}

func NewReindexJob(projects ApprovedLister, index searchService.ProjectIndex, schedule string) *ReindexJob {
	return &ReindexJob{projects: projects, index: index, schedule: schedule}
}

func (j *ReindexJob) Name() string { return "search-reindex" }

func (j *ReindexJob) Schedule() string { return j.schedule }

func (j *ReindexJob) Execute(ctx context.Context) error {
	total := 0
	for offset := 0; ; offset += reindexBatch {
		batch, err := j.projects.ListApproved(ctx, offset, reindexBatch)
		if err != nil {
			return fmt.Errorf("list approved projects: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if err := j.index.IndexProjects(ctx, batch); err != nil {
			if errors.Is(err, searchService.ErrUnavailable) {
				return nil
			}
			return fmt.Errorf("index projects: %w", err)
		}
		total += len(batch)

		if len(batch) < reindexBatch {
			break
		}
	}

	log := logger.With("search")
	log.Info().Int("projects", total).Msg("search index rebuilt")
	return nil
}
