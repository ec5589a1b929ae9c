package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/modules/investment/dto"
	"anoa.com/sparkvest/internal/modules/investment/repository"
	notifService "anoa.com/sparkvest/internal/modules/notification/service"
	projectDto "anoa.com/sparkvest/internal/modules/project/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/certificate"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/payment"
	"anoa.com/sparkvest/pkg/realtime"
	"anoa.com/sparkvest/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const certificateFolder = "certificates"

// ProjectFinder is the slice of the project repository the ledger needs.
type ProjectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
}

type InvestmentService interface {
	Initiate(ctx context.Context, investor *entity.User, projectID uuid.UUID, input dto.InitiateInput) (*dto.CheckoutResponse, error)
	Confirm(ctx context.Context, investor *entity.User, input dto.ConfirmInput) (*dto.ConfirmResponse, error)
	MyInvestments(ctx context.Context, userID uuid.UUID) ([]dto.InvestmentResponse, error)
	ReceivedInvestments(ctx context.Context, ownerID uuid.UUID, limit int) ([]dto.InvestmentResponse, error)
}

type investmentService struct {
	repo     repository.InvestmentRepository
	projects ProjectFinder
	flows    flow.Store
	gateway  payment.Gateway
	storage  storage.FileStorage
	notifier notifService.Notifier
	broker   realtime.Broker
	currency string
	now      func() time.Time
}

func NewInvestmentService(
	repo repository.InvestmentRepository,
	projects ProjectFinder,
	flows flow.Store,
	gateway payment.Gateway,
	fileStorage storage.FileStorage,
	notifier notifService.Notifier,
	broker realtime.Broker,
	currency string,
) InvestmentService {
	return &investmentService{
		repo:     repo,
		projects: projects,
		flows:    flows,
		gateway:  gateway,
		storage:  fileStorage,
		notifier: notifier,
		broker:   broker,
		currency: currency,
		now:      time.Now,
	}
}

func (s *investmentService) loadProject(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	return project, nil
}

func (s *investmentService) Initiate(ctx context.Context, investor *entity.User, projectID uuid.UUID, input dto.InitiateInput) (*dto.CheckoutResponse, error) {
	if investor == nil || investor.Role != entity.RoleInvestor {
		return nil, apperror.Forbidden("Only investors can invest in projects.")
	}
	if input.Amount <= 0 {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	minor := payment.ToMinorUnits(input.Amount)
	if minor <= 0 {
		return nil, apperror.Validation("amount is too small")
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != entity.ProjectApproved {
		return nil, apperror.Forbidden("This project is not open for investment.")
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   minor,
		Currency: s.currency,
		Receipt:  payment.Receipt(project.ID, investor.ID),
		Notes: map[string]string{
			"project_id":    project.ID.String(),
			"user_id":       investor.ID.String(),
			"project_title": project.Title,
		},
	})
	if err != nil {
		logger.L().Error().Err(err).Str("project_id", project.ID.String()).Msg("failed to create payment order")
		return nil, apperror.New(http.StatusBadGateway, "Error creating payment order. Please try again.", errors.Join(apperror.ErrPaymentProvider, err))
	}

	pending := &flow.Flow{
		Kind:      flow.KindPayment,
		UserID:    investor.ID,
		Email:     investor.Email,
		OrderID:   order.ID,
		ProjectID: project.ID,
		Amount:    input.Amount,
	}
	if err := s.flows.Start(ctx, pending); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		FlowToken:    pending.Token,
		OrderID:      order.ID,
		KeyID:        s.gateway.KeyID(),
		Amount:       minor,
		Currency:     s.currency,
		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		Name:         investor.Username,
		Email:        investor.Email,
		ExpiresAt:    pending.ExpiresAt,
	}, nil
}

func (s *investmentService) Confirm(ctx context.Context, investor *entity.User, input dto.ConfirmInput) (*dto.ConfirmResponse, error) {
	// Take removes the pending payment before anything else so it cannot be replayed.
	pending, err := s.flows.Take(ctx, input.FlowToken, flow.KindPayment)
	if err != nil {
		return nil, err
	}
	if investor == nil || pending.UserID != investor.ID {
		return nil, apperror.Forbidden("This payment belongs to another session.")
	}
	if input.PaymentID == "" || input.OrderID == "" || input.Signature == "" {
		return nil, apperror.Validation("Invalid payment response. Please try again.")
	}
	if pending.OrderID != input.OrderID {
		return nil, fmt.Errorf("order mismatch: %w", apperror.ErrPaymentVerification)
	}
	if !s.gateway.VerifySignature(input.OrderID, input.PaymentID, input.Signature) {
		logger.L().Warn().Str("order_id", input.OrderID).Str("user_id", investor.ID.String()).Msg("payment signature mismatch")
		return nil, apperror.ErrPaymentVerification
	}

	project, err := s.loadProject(ctx, pending.ProjectID)
	if err != nil {
		return nil, err
	}

	investment := &entity.Investment{
		Amount:    pending.Amount,
		UserID:    investor.ID,
		ProjectID: project.ID,
		OrderID:   input.OrderID,
		PaymentID: input.PaymentID,
		ProviderNotes: datatypes.JSONMap{
			"currency":      s.currency,
			"amount_minor":  payment.ToMinorUnits(pending.Amount),
			"project_title": project.Title,
		},
	}

	var stake string
	if project.IsStake() {
		cert := certificate.StakeCertificate{
			Number:          certificate.Number(project.ID, investor.ID),
			IssuedAt:        s.now(),
			InvestorName:    investor.Username,
			InvestorEmail:   investor.Email,
			Currency:        s.currency,
			Amount:          pending.Amount,
			ProjectTitle:    project.Title,
			ProjectSummary:  project.ShortDescription,
			Valuation:       project.Goal,
			StakePercentage: certificate.StakePercentage(pending.Amount, project.Goal),
			Terms:           project.StakeTerms,
		}
		url, err := s.issueCertificate(ctx, cert, project.ID, investor.ID)
		if err != nil {
			return nil, err
		}
		investment.CertificateURL = &url
		investment.ProviderNotes["certificate_number"] = cert.Number
		stake = cert.FormattedStake()
	}

	updated, err := s.repo.Settle(ctx, investment)
	if err != nil {
		if investment.CertificateURL != nil {
			if delErr := s.storage.Delete(ctx, *investment.CertificateURL); delErr != nil {
				logger.L().Warn().Err(delErr).Msg("failed to remove certificate of failed settlement")
			}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(http.StatusConflict, "This payment has already been recorded.", apperror.ErrConflict)
		}
		return nil, apperror.Persistence(err)
	}
	project.CurrentAmount = updated.CurrentAmount

	logger.L().Info().
		Str("investment_id", investment.ID.String()).
		Str("project_id", project.ID.String()).
		Float64("amount", investment.Amount).
		Msg("investment settled")

	s.afterSettle(ctx, investor, project, investment)

	res := toResponse(investment, project, s.now())
	res.StakeDisplay = stake
	return &dto.ConfirmResponse{
		Message:    fmt.Sprintf("Thank you for investing %.2f in %s!", investment.Amount, project.Title),
		Investment: res,
	}, nil
}

func (s *investmentService) issueCertificate(ctx context.Context, cert certificate.StakeCertificate, projectID, userID uuid.UUID) (string, error) {
	pdf, err := certificate.Render(cert)
	if err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}
	url, err := s.storage.Upload(ctx, bytes.NewReader(pdf), certificateFolder, certificate.FileName(projectID, userID))
	if err != nil {
		return "", fmt.Errorf("store certificate: %w", err)
	}
	return url, nil
}

// afterSettle publishes the new totals and tells the owner; failures are only logged.
func (s *investmentService) afterSettle(ctx context.Context, investor *entity.User, project *entity.Project, investment *entity.Investment) {
	if s.broker != nil {
		update := projectDto.FundingUpdate{
			ProjectID:          project.ID,
			CurrentAmount:      project.CurrentAmount,
			ProgressPercentage: project.ProgressPercentage(),
			IsFunded:           project.IsFunded(),
		}
		if err := realtime.PublishJSON(ctx, s.broker, realtime.ProjectChannel(project.ID), update); err != nil {
			logger.L().Warn().Err(err).Str("project_id", project.ID.String()).Msg("failed to publish funding update")
		}
	}

	actorID := investor.ID
	notifService.Notify(ctx, s.notifier, &entity.Notification{
		UserID:     project.UserID,
		ActorID:    &actorID,
		EntityID:   investment.ID,
		EntityType: entity.NotificationEntityInvestment,
		Type:       entity.NotificationInvestment,
		Message:    fmt.Sprintf("%s invested %.2f in %s", investor.Username, investment.Amount, project.Title),
	})
}

func (s *investmentService) MyInvestments(ctx context.Context, userID uuid.UUID) ([]dto.InvestmentResponse, error) {
	investments, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return s.toResponses(investments), nil
}

func (s *investmentService) ReceivedInvestments(ctx context.Context, ownerID uuid.UUID, limit int) ([]dto.InvestmentResponse, error) {
	investments, err := s.repo.FindByProjectOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return s.toResponses(investments), nil
}

func (s *investmentService) toResponses(investments []entity.Investment) []dto.InvestmentResponse {
	now := s.now()
	out := make([]dto.InvestmentResponse, 0, len(investments))
	for i := range investments {
		inv := &investments[i]
		res := toResponse(inv, inv.Project, now)
		if inv.Project != nil && inv.Project.IsStake() {
			res.StakeDisplay = fmt.Sprintf("%.2f%%", certificate.StakePercentage(inv.Amount, inv.Project.Goal))
		}
		out = append(out, res)
	}
	return out
}

func toResponse(inv *entity.Investment, project *entity.Project, now time.Time) dto.InvestmentResponse {
	res := dto.InvestmentResponse{
		ID:             inv.ID,
		Amount:         inv.Amount,
		CertificateURL: inv.CertificateURL,
		CreatedAt:      inv.CreatedAt,
	}
	if project != nil {
		res.Project = projectDto.ToSummary(project, now)
	}
	return res
}
