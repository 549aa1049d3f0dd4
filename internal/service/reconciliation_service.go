package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/cache"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

const reconciliationCacheNamespace = "reconciliation_stats"

// ReconciliationService end-of-route cash settlement
type ReconciliationService struct {
	tx                 repository.Transactor
	reconciliationRepo repository.ReconciliationRepository
	routeRepo          repository.RouteRepository
	orderRepo          repository.OrderRepository
	userRepo           repository.UserRepository
	routes             *RouteService
	authorizer         Authorizer
	statsTTL           time.Duration
}

// CreateReconciliationInput route to settle; CourierID overrides the route's courier as the one accountable for the cash
type CreateReconciliationInput struct {
	RouteID   uint  `json:"route_id" validate:"required"`
	CourierID *uint `json:"courier_id"`
}

// SubmitReconciliationInput courier declaration
type SubmitReconciliationInput struct {
	DeclaredAmount models.Money `json:"declared_amount"`
	Justification  string       `json:"justification" validate:"max=2000"`
}

// SubmitResult submitted reconciliation and the cash difference
type SubmitResult struct {
	Reconciliation        *models.CashReconciliation `json:"reconciliation"`
	Difference            models.Money               `json:"difference"`
	JustificationRequired bool                       `json:"justification_required"`
}

// AddAdjustmentInput explained deviation
type AddAdjustmentInput struct {
	Type        string       `json:"type" validate:"required"`
	Amount      models.Money `json:"amount"`
	Description string       `json:"description" validate:"max=2000"`
	PhotoRef    string       `json:"photo_ref" validate:"max=500"`
}

// ReviewReconciliationInput reviewer decision
type ReviewReconciliationInput struct {
	Action string `json:"action" validate:"required,oneof=approve reject observe"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// ReconciliationStatsFilter statistics filter
type ReconciliationStatsFilter struct {
	DateFrom  *time.Time
	DateTo    *time.Time
	CourierID uint
}

// ReconciliationStatusStats aggregates of one status
type ReconciliationStatusStats struct {
	Count          int          `json:"count"`
	ExpectedCash   models.Money `json:"expected_cash"`
	DeclaredAmount models.Money `json:"declared_amount"`
	Difference     models.Money `json:"difference"`
}

// ReconciliationCourierStats aggregates of one courier
type ReconciliationCourierStats struct {
	CourierID       uint         `json:"courier_id"`
	Count           int          `json:"count"`
	TotalDifference models.Money `json:"total_difference"`
	Shortages       int          `json:"shortages"`
	Surpluses       int          `json:"surpluses"`
}

// ReconciliationStats statistics over a set of reconciliations
type ReconciliationStats struct {
	Total             int                                  `json:"total"`
	TotalExpectedCash models.Money                         `json:"total_expected_cash"`
	TotalDeclared     models.Money                         `json:"total_declared"`
	TotalDifference   models.Money                         `json:"total_difference"`
	ByStatus          map[string]ReconciliationStatusStats `json:"by_status"`
	ByCourier         []ReconciliationCourierStats         `json:"by_courier"`
}

// NewReconciliationService creates the reconciliation workflow
func NewReconciliationService(
	tx repository.Transactor,
	reconciliationRepo repository.ReconciliationRepository,
	routeRepo repository.RouteRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	routes *RouteService,
	authorizer Authorizer,
	statsTTL time.Duration,
) *ReconciliationService {
	return &ReconciliationService{
		tx:                 tx,
		reconciliationRepo: reconciliationRepo,
		routeRepo:          routeRepo,
		orderRepo:          orderRepo,
		userRepo:           userRepo,
		routes:             routes,
		authorizer:         authorizer,
		statsTTL:           statsTTL,
	}
}

// CreateFromRoute snapshots what the delivered orders of a route paid. One reconciliation per route.
func (s *ReconciliationService) CreateFromRoute(ctx context.Context, input CreateReconciliationInput, actor Actor) (*models.CashReconciliation, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var reconciliation *models.CashReconciliation
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		// the route row lock serializes concurrent creates for the same route
		route, err := s.routeRepo.WithTx(tx).GetByIDForUpdate(input.RouteID)
		if err != nil {
			return err
		}
		if route == nil {
			return ErrRouteNotFound
		}
		if err := s.requireCourierOrPrivileged(route.CourierID, actor); err != nil {
			return err
		}
		courierID := route.CourierID
		if input.CourierID != nil {
			courier, err := activeCourier(s.userRepo.WithTx(tx), *input.CourierID)
			if err != nil {
				return err
			}
			courierID = courier.ID
		}
		repo := s.reconciliationRepo.WithTx(tx)
		existing, err := repo.GetByRouteID(route.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return newDomainError(ErrReconciliationExists, Problem{
				Code:    "reconciliation_exists",
				Message: fmt.Sprintf("route %d already has reconciliation %d", route.ID, existing.ID),
			})
		}

		orderIDs := make([]uint, 0, len(route.Stops))
		for _, stop := range route.Stops {
			if stop.DeliveryStatus == constants.StopStatusDelivered {
				orderIDs = append(orderIDs, stop.OrderID)
			}
		}
		orders, err := s.orderRepo.WithTx(tx).ListByIDs(orderIDs)
		if err != nil {
			return err
		}
		expectedCash := models.Money{}
		expectedOther := models.Money{}
		lines := make([]models.ReconciliationLineItem, 0, len(orders))
		for _, order := range orders {
			if order.PaymentMethod == constants.PaymentMethodCash {
				expectedCash = expectedCash.Plus(order.AmountPaid)
			} else {
				expectedOther = expectedOther.Plus(order.AmountPaid)
			}
			line := models.ReconciliationLineItem{
				OrderID:       order.ID,
				Amount:        order.AmountPaid,
				PaymentMethod: order.PaymentMethod,
			}
			if order.Customer != nil {
				line.CustomerName = order.Customer.Name
			}
			lines = append(lines, line)
		}

		reconciliation = &models.CashReconciliation{
			RouteID:       route.ID,
			CourierID:     courierID,
			ExpectedCash:  expectedCash,
			ExpectedOther: expectedOther,
			Difference:    models.Money{}.Minus(expectedCash),
			Status:        constants.ReconciliationPending,
		}
		if err := repo.Create(reconciliation, lines); err != nil {
			return fmt.Errorf("create reconciliation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	metrics.ReconciliationsTotal.WithLabelValues(constants.ReconciliationPending).Inc()
	logger.Infow("reconciliation_created",
		"reconciliation_id", reconciliation.ID,
		"route_id", input.RouteID,
		"courier_id", reconciliation.CourierID,
		"expected_cash", reconciliation.ExpectedCash.String(),
		"expected_other", reconciliation.ExpectedOther.String(),
	)
	return reconciliation, nil
}

// Submit records the declared cash; difference = declared - expected cash
func (s *ReconciliationService) Submit(ctx context.Context, id uint, input SubmitReconciliationInput, actor Actor) (*SubmitResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.DeclaredAmount.IsNegative() {
		return nil, invalidField("declared_amount", "declared amount cannot be negative")
	}
	var result *SubmitResult
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.reconciliationRepo.WithTx(tx)
		reconciliation, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if reconciliation == nil {
			return ErrReconciliationNotFound
		}
		if err := s.requireCourierOrPrivileged(reconciliation.CourierID, actor); err != nil {
			return err
		}
		if reconciliation.Status != constants.ReconciliationPending && reconciliation.Status != constants.ReconciliationWithObservations {
			return stateError(reconciliation, "submit")
		}
		difference := input.DeclaredAmount.Minus(reconciliation.ExpectedCash)
		now := time.Now()
		if err := repo.UpdateFields(id, map[string]interface{}{
			"declared_amount": input.DeclaredAmount,
			"difference":      difference,
			"justification":   strings.TrimSpace(input.Justification),
			"status":          constants.ReconciliationSubmitted,
			"submitted_at":    &now,
		}); err != nil {
			return err
		}
		updated, err := repo.GetByID(id)
		if err != nil {
			return err
		}
		result = &SubmitResult{
			Reconciliation:        updated,
			Difference:            difference,
			JustificationRequired: !difference.IsZero(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	metrics.ReconciliationsTotal.WithLabelValues(constants.ReconciliationSubmitted).Inc()
	logger.Infow("reconciliation_submitted",
		"reconciliation_id", id,
		"difference", result.Difference.String(),
		"justification_required", result.JustificationRequired,
		"actor_id", actor.ID,
	)
	return result, nil
}

// AddAdjustment attaches an explained deviation while the reconciliation is still open
func (s *ReconciliationService) AddAdjustment(ctx context.Context, id uint, input AddAdjustmentInput, actor Actor) (*models.ReconciliationAdjustment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !constants.ValidAdjustmentType(input.Type) {
		return nil, invalidField("type", fmt.Sprintf("unknown adjustment type %q", input.Type))
	}
	if input.Amount.Decimal.Sign() <= 0 {
		return nil, invalidField("amount", "adjustment amount must be greater than zero")
	}
	var adjustment *models.ReconciliationAdjustment
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.reconciliationRepo.WithTx(tx)
		reconciliation, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if reconciliation == nil {
			return ErrReconciliationNotFound
		}
		if err := s.requireCourierOrPrivileged(reconciliation.CourierID, actor); err != nil {
			return err
		}
		switch reconciliation.Status {
		case constants.ReconciliationPending, constants.ReconciliationSubmitted, constants.ReconciliationWithObservations:
		default:
			return stateError(reconciliation, "add adjustment")
		}
		adjustment = &models.ReconciliationAdjustment{
			ReconciliationID: id,
			Type:             input.Type,
			Amount:           input.Amount,
			Description:      strings.TrimSpace(input.Description),
			PhotoRef:         strings.TrimSpace(input.PhotoRef),
			CreatedBy:        actor.Ref(),
		}
		return repo.CreateAdjustment(adjustment)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return adjustment, nil
}

// Review approves, rejects or sends back a submitted reconciliation
func (s *ReconciliationService) Review(ctx context.Context, id uint, input ReviewReconciliationInput, actor Actor) (*models.CashReconciliation, error) {
	if err := requirePermission(s.authorizer, actor, authz.PermReviewReconciliation); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var status string
	switch input.Action {
	case constants.ReviewActionApprove:
		status = constants.ReconciliationApproved
	case constants.ReviewActionReject:
		status = constants.ReconciliationRejected
	default:
		status = constants.ReconciliationWithObservations
	}

	var reviewed *models.CashReconciliation
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.reconciliationRepo.WithTx(tx)
		reconciliation, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if reconciliation == nil {
			return ErrReconciliationNotFound
		}
		if reconciliation.Status != constants.ReconciliationSubmitted {
			return stateError(reconciliation, "review")
		}
		now := time.Now()
		if err := repo.UpdateFields(id, map[string]interface{}{
			"status":       status,
			"reviewer_id":  actor.Ref(),
			"reviewed_at":  &now,
			"review_notes": strings.TrimSpace(input.Notes),
		}); err != nil {
			return err
		}
		if status == constants.ReconciliationApproved {
			if err := tx.Model(&models.ReconciliationAdjustment{}).
				Where("reconciliation_id = ?", id).
				Update("approved", true).Error; err != nil {
				return err
			}
			if err := s.routes.CompleteInTx(tx, reconciliation.RouteID); err != nil {
				return err
			}
		}
		reviewed, err = repo.GetByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	metrics.ReconciliationsTotal.WithLabelValues(status).Inc()
	logger.Infow("reconciliation_reviewed", "reconciliation_id", id, "status", status, "actor_id", actor.ID)
	return reviewed, nil
}

// Get loads a reconciliation with line items and adjustments
func (s *ReconciliationService) Get(id uint) (*models.CashReconciliation, error) {
	reconciliation, err := s.reconciliationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reconciliation == nil {
		return nil, ErrReconciliationNotFound
	}
	return reconciliation, nil
}

// Statistics counts and sums by status and courier; served from redis while the version is unchanged
func (s *ReconciliationService) Statistics(ctx context.Context, filter ReconciliationStatsFilter) (*ReconciliationStats, error) {
	key := ""
	if cache.Enabled() {
		version, err := cache.Version(ctx, reconciliationCacheNamespace)
		if err != nil {
			logger.Warnw("reconciliation_stats_version_failed", "error", err)
		} else {
			key = statsCacheKey(version, filter)
			var cached ReconciliationStats
			hit, err := cache.GetJSON(ctx, key, &cached)
			if err != nil {
				logger.Warnw("reconciliation_stats_cache_read_failed", "key", key, "error", err)
			} else if hit {
				return &cached, nil
			}
		}
	}

	rows, err := s.reconciliationRepo.List(repository.ReconciliationListFilter{
		CourierID: filter.CourierID,
		DateFrom:  filter.DateFrom,
		DateTo:    filter.DateTo,
	})
	if err != nil {
		return nil, err
	}
	stats := aggregateReconciliations(rows)

	if key != "" && s.statsTTL > 0 {
		if err := cache.SetJSON(ctx, key, stats, s.statsTTL); err != nil {
			logger.Warnw("reconciliation_stats_cache_write_failed", "key", key, "error", err)
		}
	}
	return stats, nil
}

func aggregateReconciliations(rows []models.CashReconciliation) *ReconciliationStats {
	stats := &ReconciliationStats{
		Total:    len(rows),
		ByStatus: make(map[string]ReconciliationStatusStats),
	}
	byCourier := make(map[uint]*ReconciliationCourierStats)
	for _, row := range rows {
		stats.TotalExpectedCash = stats.TotalExpectedCash.Plus(row.ExpectedCash)
		stats.TotalDeclared = stats.TotalDeclared.Plus(row.DeclaredAmount)
		stats.TotalDifference = stats.TotalDifference.Plus(row.Difference)

		bucket := stats.ByStatus[row.Status]
		bucket.Count++
		bucket.ExpectedCash = bucket.ExpectedCash.Plus(row.ExpectedCash)
		bucket.DeclaredAmount = bucket.DeclaredAmount.Plus(row.DeclaredAmount)
		bucket.Difference = bucket.Difference.Plus(row.Difference)
		stats.ByStatus[row.Status] = bucket

		courier, ok := byCourier[row.CourierID]
		if !ok {
			courier = &ReconciliationCourierStats{CourierID: row.CourierID}
			byCourier[row.CourierID] = courier
		}
		courier.Count++
		courier.TotalDifference = courier.TotalDifference.Plus(row.Difference)
		// only declared reconciliations say anything about shortage or surplus
		if row.Status != constants.ReconciliationPending {
			switch row.Difference.Decimal.Sign() {
			case -1:
				courier.Shortages++
			case 1:
				courier.Surpluses++
			}
		}
	}
	stats.ByCourier = make([]ReconciliationCourierStats, 0, len(byCourier))
	for _, courier := range byCourier {
		stats.ByCourier = append(stats.ByCourier, *courier)
	}
	sort.Slice(stats.ByCourier, func(i, j int) bool {
		return stats.ByCourier[i].CourierID < stats.ByCourier[j].CourierID
	})
	return stats
}

func (s *ReconciliationService) invalidateStats(ctx context.Context) {
	if err := cache.BumpVersion(ctx, reconciliationCacheNamespace); err != nil {
		logger.Warnw("reconciliation_stats_invalidate_failed", "error", err)
	}
}

func (s *ReconciliationService) requireCourierOrPrivileged(courierID uint, actor Actor) error {
	if actor.ID != 0 && actor.ID == courierID {
		return nil
	}
	return requirePermission(s.authorizer, actor, authz.PermManageAnyReconciliation)
}

func statsCacheKey(version int64, filter ReconciliationStatsFilter) string {
	return fmt.Sprintf("reconciliation:stats:v%d:%s:%s:%d", version, dateKey(filter.DateFrom), dateKey(filter.DateTo), filter.CourierID)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func stateError(reconciliation *models.CashReconciliation, action string) error {
	return newDomainError(ErrReconciliationState, Problem{
		Code:    "reconciliation_state",
		Field:   "status",
		Message: fmt.Sprintf("cannot %s reconciliation %d in status %s", action, reconciliation.ID, reconciliation.Status),
	})
}
