package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"gorm.io/gorm"
)

// AuditService order history and the deleted order archive
type AuditService struct {
	auditRepo    repository.AuditRepository
	customerRepo repository.CustomerRepository
	userRepo     repository.UserRepository
	productRepo  repository.ProductRepository
}

// NewAuditService creates the audit service
func NewAuditService(
	auditRepo repository.AuditRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
) *AuditService {
	return &AuditService{
		auditRepo:    auditRepo,
		customerRepo: customerRepo,
		userRepo:     userRepo,
		productRepo:  productRepo,
	}
}

// historyChange one field change to record
type historyChange struct {
	Field    string
	OldValue string
	NewValue string
}

// RecordInTx appends history entries for every change whose value actually differs
func (s *AuditService) RecordInTx(tx *gorm.DB, orderID uint, actor Actor, changes ...historyChange) error {
	entries := make([]models.OrderHistory, 0, len(changes))
	now := time.Now()
	for _, change := range changes {
		if change.OldValue == change.NewValue {
			continue
		}
		entries = append(entries, models.OrderHistory{
			OrderID:   orderID,
			ActorID:   actor.Ref(),
			Field:     change.Field,
			OldValue:  change.OldValue,
			NewValue:  change.NewValue,
			CreatedAt: now,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return s.auditRepo.WithTx(tx).CreateHistory(entries...)
}

// ArchiveInTx snapshots an order before deletion. Names that cannot be resolved stay empty.
func (s *AuditService) ArchiveInTx(tx *gorm.DB, order *models.Order, stockRestored bool, actor Actor, reason string) (*models.DeletedOrder, error) {
	archive := &models.DeletedOrder{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		CreatedByID:    order.CreatedBy,
		CourierID:      order.CourierID,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		PaymentMethod:  order.PaymentMethod,
		Total:          order.Total,
		AmountPaid:     order.AmountPaid,
		StockRestored:  stockRestored,
		DeletedBy:      actor.Ref(),
		Reason:         strings.TrimSpace(reason),
		OrderCreatedAt: order.CreatedAt,
		ArchivedAt:     time.Now(),
	}
	customer, err := s.customerRepo.WithTx(tx).GetByID(order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		archive.CustomerName = customer.Name
		archive.CustomerAddress = customer.Address
	}
	names, err := s.userNames(tx, order.CreatedBy, order.CourierID)
	if err != nil {
		return nil, err
	}
	if order.CreatedBy != nil {
		archive.CreatedByName = names[*order.CreatedBy]
	}
	if order.CourierID != nil {
		archive.CourierName = names[*order.CourierID]
	}

	productIDs := make([]uint, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.WithTx(tx).ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productNames := make(map[uint]string, len(products))
	for _, p := range products {
		productNames[p.ID] = p.Name
	}
	archive.Items = make(models.ArchivedItems, 0, len(order.Items))
	for _, item := range order.Items {
		archive.Items = append(archive.Items, models.ArchivedItem{
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	if err := s.auditRepo.WithTx(tx).CreateArchive(archive); err != nil {
		return nil, err
	}
	return archive, nil
}

func (s *AuditService) userNames(tx *gorm.DB, ids ...*uint) (map[uint]string, error) {
	wanted := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != nil && *id != 0 {
			wanted = append(wanted, *id)
		}
	}
	names := make(map[uint]string, len(wanted))
	if len(wanted) == 0 {
		return names, nil
	}
	users, err := s.userRepo.WithTx(tx).ListByIDs(wanted)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// History change log of an order, oldest first
func (s *AuditService) History(orderID uint) ([]models.OrderHistory, error) {
	return s.auditRepo.ListHistory(orderID)
}

// ListDeleted pages through archived orders
func (s *AuditService) ListDeleted(filter repository.DeletedOrderListFilter) ([]models.DeletedOrder, int64, error) {
	return s.auditRepo.ListArchives(filter)
}

// itemsSummary renders items as "product:qtyxprice" sorted by product, used as history value
func itemsSummary(items []models.OrderItem) string {
	sorted := make([]models.OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	parts := make([]string, 0, len(sorted))
	for _, item := range sorted {
		parts = append(parts, fmt.Sprintf("%d:%dx%s", item.ProductID, item.Quantity, item.UnitPrice.String()))
	}
	return strings.Join(parts, ",")
}

func optionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
