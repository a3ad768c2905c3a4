package services

import (
	"context"

	"checkout-service/models"
	"checkout-service/repository"

	"go.uber.org/zap"
)

// CartService is the cart aggregator: pure local cart state plus a storage
// side channel. Every mutation re-persists so a reload never loses the
// cart. It makes no network calls beyond the injected store.
type CartService interface {
	Get(ctx context.Context, userID string) (*models.Cart, *ServiceError)
	AddItem(ctx context.Context, userID string, req *models.AddItemRequest) (*models.Cart, *ServiceError)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, *ServiceError)
	RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, *ServiceError)
	Clear(ctx context.Context, userID string) *ServiceError
}

type cartServiceImpl struct {
	store  repository.CartStore
	logger *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store repository.CartStore, logger *zap.Logger) CartService {
	return &cartServiceImpl{store: store, logger: logger}
}

// Get returns the user's cart, creating an empty one when none is stored.
func (s *cartServiceImpl) Get(ctx context.Context, userID string) (*models.Cart, *ServiceError) {
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load cart"}
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	return cart, nil
}

// AddItem merges by product id: an existing line gains quantity at its
// original snapshot price, a new line is appended at the submitted price.
func (s *cartServiceImpl) AddItem(ctx context.Context, userID string, req *models.AddItemRequest) (*models.Cart, *ServiceError) {
	cart, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	found := false
	for i, existing := range cart.Items {
		if existing.ProductID == req.ProductID {
			cart.Items[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: req.ProductID,
			Name:      req.Name,
			UnitPrice: req.UnitPrice,
			Quantity:  req.Quantity,
			ImageRef:  req.ImageRef,
		})
	}

	return s.persist(ctx, cart)
}

// UpdateQuantity sets a line's quantity. Quantities below 1 are a no-op;
// removal is an explicit separate operation.
func (s *cartServiceImpl) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*models.Cart, *ServiceError) {
	cart, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	if quantity < 1 {
		return cart, nil
	}

	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items[i].Quantity = quantity
			return s.persist(ctx, cart)
		}
	}

	return nil, &ServiceError{StatusCode: 404, Message: "Item not in cart"}
}

// RemoveItem drops a line from the cart.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, *ServiceError) {
	cart, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	newItems := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID != productID {
			newItems = append(newItems, item)
		}
	}
	cart.Items = newItems

	return s.persist(ctx, cart)
}

// Clear empties the cart and persists the empty state.
func (s *cartServiceImpl) Clear(ctx context.Context, userID string) *ServiceError {
	if err := s.store.Clear(ctx, userID); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to clear cart"}
	}
	return nil
}

func (s *cartServiceImpl) persist(ctx context.Context, cart *models.Cart) (*models.Cart, *ServiceError) {
	if err := s.store.Save(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", cart.UserID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to save cart"}
	}
	return cart, nil
}
