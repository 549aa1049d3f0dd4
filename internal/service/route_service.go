package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/authz"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// RouteService courier delivery runs
type RouteService struct {
	tx         repository.Transactor
	routeRepo  repository.RouteRepository
	orderRepo  repository.OrderRepository
	orders     *OrderService
	authorizer Authorizer
}

// CreateRouteInput create route input; orders are visited in the given order
type CreateRouteInput struct {
	CourierID uint      `json:"courier_id" validate:"required"`
	RouteDate time.Time `json:"route_date"`
	OrderIDs  []uint    `json:"order_ids" validate:"required,min=1,dive,required"`
}

// NewRouteService creates the route service
func NewRouteService(tx repository.Transactor, routeRepo repository.RouteRepository, orderRepo repository.OrderRepository, orders *OrderService, authorizer Authorizer) *RouteService {
	return &RouteService{
		tx:         tx,
		routeRepo:  routeRepo,
		orderRepo:  orderRepo,
		orders:     orders,
		authorizer: authorizer,
	}
}

// CreateRoute assigns the courier and delivery sequence to each order and creates ordered stops
func (s *RouteService) CreateRoute(ctx context.Context, input CreateRouteInput, actor Actor) (*models.DeliveryRoute, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(input.OrderIDs))
	for i, id := range input.OrderIDs {
		if seen[id] {
			return nil, invalidField(fmt.Sprintf("order_ids[%d]", i), fmt.Sprintf("order %d listed twice", id))
		}
		seen[id] = true
	}
	routeDate := input.RouteDate
	if routeDate.IsZero() {
		routeDate = time.Now()
	}

	var route *models.DeliveryRoute
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		total := models.Money{}
		stops := make([]models.RouteStop, 0, len(input.OrderIDs))
		for i, orderID := range input.OrderIDs {
			order, err := orderRepo.GetByIDForUpdate(orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if order.Status == constants.OrderStatusDelivered {
				return newDomainError(ErrOrderDelivered, Problem{
					Code:    "order_delivered",
					Field:   fmt.Sprintf("order_ids[%d]", i),
					Message: fmt.Sprintf("order %d is already delivered", order.ID),
				})
			}
			sequence := i + 1
			if err := s.orders.assignCourierInTx(tx, order, input.CourierID, actor); err != nil {
				return err
			}
			oldSequence := optionalInt(order.DeliverySequence)
			if err := orderRepo.UpdateFields(order.ID, map[string]interface{}{"delivery_sequence": sequence}); err != nil {
				return err
			}
			if err := s.orders.audit.RecordInTx(tx, order.ID, actor, historyChange{
				Field:    constants.HistoryFieldSequence,
				OldValue: oldSequence,
				NewValue: strconv.Itoa(sequence),
			}); err != nil {
				return err
			}
			if err := s.orders.changeStatusInTx(tx, order, constants.OrderStatusAssigned, actor); err != nil {
				return err
			}
			total = total.Plus(order.Total)
			stops = append(stops, models.RouteStop{
				OrderID:        order.ID,
				Sequence:       sequence,
				DeliveryStatus: constants.StopStatusPending,
			})
		}
		route = &models.DeliveryRoute{
			CourierID:     input.CourierID,
			RouteDate:     routeDate,
			Status:        constants.RouteStatusPending,
			TotalInvoiced: total,
		}
		return s.routeRepo.WithTx(tx).Create(route, stops)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("route_created", "route_id", route.ID, "courier_id", route.CourierID, "stops", len(route.Stops), "actor_id", actor.ID)
	return route, nil
}

// MarkStopDelivered marks the stop delivered, moves its order to delivered and refreshes totals
func (s *RouteService) MarkStopDelivered(ctx context.Context, routeID, orderID uint, actor Actor) (*models.DeliveryRoute, error) {
	return s.markStop(ctx, routeID, orderID, constants.StopStatusDelivered, actor)
}

// MarkStopFailed records that the order could not be delivered on this run
func (s *RouteService) MarkStopFailed(ctx context.Context, routeID, orderID uint, actor Actor) (*models.DeliveryRoute, error) {
	return s.markStop(ctx, routeID, orderID, constants.StopStatusNotDelivered, actor)
}

func (s *RouteService) markStop(ctx context.Context, routeID, orderID uint, status string, actor Actor) (*models.DeliveryRoute, error) {
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		routeRepo := s.routeRepo.WithTx(tx)
		route, err := routeRepo.GetByIDForUpdate(routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return ErrRouteNotFound
		}
		if err := s.requireOwner(route, actor); err != nil {
			return err
		}
		if route.Status == constants.RouteStatusCompleted {
			return ErrRouteCompleted
		}
		stop, err := routeRepo.GetStop(route.ID, orderID)
		if err != nil {
			return err
		}
		if stop == nil {
			return ErrRouteStopNotFound
		}

		stop.DeliveryStatus = status
		stop.DeliveredAt = nil
		if status == constants.StopStatusDelivered {
			now := time.Now()
			stop.DeliveredAt = &now
			order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if err := s.orders.changeStatusInTx(tx, order, constants.OrderStatusDelivered, actor); err != nil {
				return err
			}
		}
		if err := routeRepo.UpdateStop(stop); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if route.Status == constants.RouteStatusPending {
			updates["status"] = constants.RouteStatusInProgress
		}
		collected, err := s.collected(tx, route.ID)
		if err != nil {
			return err
		}
		updates["total_collected"] = collected
		return routeRepo.UpdateFields(route.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRoute(routeID)
}

// collected sum of amount paid over delivered stops
func (s *RouteService) collected(tx *gorm.DB, routeID uint) (models.Money, error) {
	stops, err := s.routeRepo.WithTx(tx).ListStops(routeID)
	if err != nil {
		return models.Money{}, err
	}
	ids := make([]uint, 0, len(stops))
	for _, stop := range stops {
		if stop.DeliveryStatus == constants.StopStatusDelivered {
			ids = append(ids, stop.OrderID)
		}
	}
	orders, err := s.orderRepo.WithTx(tx).ListByIDs(ids)
	if err != nil {
		return models.Money{}, err
	}
	total := models.Money{}
	for _, order := range orders {
		total = total.Plus(order.AmountPaid)
	}
	return total, nil
}

// CompleteInTx closes the route; called when its reconciliation is approved
func (s *RouteService) CompleteInTx(tx *gorm.DB, routeID uint) error {
	now := time.Now()
	return s.routeRepo.WithTx(tx).UpdateFields(routeID, map[string]interface{}{
		"status":       constants.RouteStatusCompleted,
		"completed_at": &now,
	})
}

// GetRoute loads a route with its stops
func (s *RouteService) GetRoute(routeID uint) (*models.DeliveryRoute, error) {
	route, err := s.routeRepo.GetByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}
	return route, nil
}

func (s *RouteService) requireOwner(route *models.DeliveryRoute, actor Actor) error {
	if actor.ID != 0 && actor.ID == route.CourierID {
		return nil
	}
	return requirePermission(s.authorizer, actor, authz.PermManageAnyRoute)
}
