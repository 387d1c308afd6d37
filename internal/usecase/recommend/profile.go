package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/repository/profile"
)

// feedbackEvents is the accepted event-type whitelist.
var feedbackEvents = map[string]struct{}{
	"click": {}, "cart_add": {}, "match_check": {}, "complete_look": {}, "refine": {},
}

// FeedbackPayload acknowledges a recorded event.
type FeedbackPayload struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}

// RecordFeedback validates and stores one engagement event. Click and
// cart-add events additionally bump the profile counters and refresh the
// derived preferences. productID zero means no product reference.
func (s *Service) RecordFeedback(ctx context.Context, shopperName, eventType, sessionID string, productID int, eventValue string) (FeedbackPayload, error) {
	event := strings.ToLower(strings.TrimSpace(eventType))
	if _, ok := feedbackEvents[event]; !ok {
		return FeedbackPayload{}, fmt.Errorf("event_type must be one of: click, cart_add, match_check, complete_look, refine: %w", domain.ErrInvalidArgument)
	}

	shopper, err := s.profiles.Ensure(ctx, shopperName)
	if err != nil {
		return FeedbackPayload{}, err
	}

	var product *domain.Product
	if productID != 0 {
		item, ok := s.catalog.ByID(productID)
		if !ok {
			return FeedbackPayload{}, domainProductErr(productID)
		}
		product = &item
	}

	if err := s.profiles.RecordFeedback(ctx, domain.FeedbackEvent{
		ShopperName: shopper,
		SessionID:   sessionID,
		ProductID:   productID,
		EventType:   event,
		EventValue:  eventValue,
	}, product); err != nil {
		return FeedbackPayload{}, err
	}

	if event == "click" || event == "cart_add" {
		if err := s.profiles.IncrementEventCounter(ctx, shopper, event, 1); err != nil {
			return FeedbackPayload{}, err
		}
		if err := s.refreshPreferences(ctx, shopper); err != nil {
			s.logger.Warn("failed to refresh profile preferences", zap.Error(err))
		}
	}

	return FeedbackPayload{Status: "ok", EventType: event}, nil
}

// refreshPreferences re-derives the profile's preferred attributes from the
// engagement affinity counters.
func (s *Service) refreshPreferences(ctx context.Context, shopperName string) error {
	gender, err := s.profiles.TopAttribute(ctx, shopperName, profile.AttrGender)
	if err != nil {
		return err
	}
	color, err := s.profiles.TopAttribute(ctx, shopperName, profile.AttrBaseColour)
	if err != nil {
		return err
	}
	article, err := s.profiles.TopAttribute(ctx, shopperName, profile.AttrArticleType)
	if err != nil {
		return err
	}
	return s.profiles.UpdatePreferences(ctx, shopperName, gender, color, article)
}

// GetProfile returns the shopper profile with refreshed preferences and the
// current cart size.
func (s *Service) GetProfile(ctx context.Context, shopperName string) (ProfilePayload, error) {
	shopper, err := s.profiles.Ensure(ctx, shopperName)
	if err != nil {
		return ProfilePayload{}, err
	}
	if err := s.refreshPreferences(ctx, shopper); err != nil {
		s.logger.Warn("failed to refresh profile preferences", zap.Error(err))
	}

	stored, err := s.profiles.Get(ctx, shopper)
	if err != nil {
		return ProfilePayload{}, err
	}
	cart, err := s.GetCart(ctx, shopper)
	if err != nil {
		return ProfilePayload{}, err
	}

	return ProfilePayload{
		ShopperName:         stored.ShopperName,
		MembershipTier:      stored.MembershipTier,
		PreferredGender:     orUnspecified(stored.PreferredGender),
		FavoriteColor:       orUnspecified(stored.FavoriteColor),
		FavoriteArticleType: orUnspecified(stored.FavoriteArticleType),
		ClickEvents:         stored.ClickEvents,
		CartAddEvents:       stored.CartAddEvents,
		CartItems:           cart.TotalItems,
		UpdatedAt:           stored.UpdatedAt,
	}, nil
}

// GetCart returns the shopper's cart joined with product details.
func (s *Service) GetCart(ctx context.Context, shopperName string) (CartPayload, error) {
	shopper, err := s.profiles.Ensure(ctx, shopperName)
	if err != nil {
		return CartPayload{}, err
	}
	lines, err := s.profiles.CartItems(ctx, shopper)
	if err != nil {
		return CartPayload{}, err
	}

	payload := CartPayload{ShopperName: shopper, Items: []CartItem{}}
	for _, line := range lines {
		product, ok := s.catalog.ByID(line.ProductID)
		if !ok {
			continue
		}
		payload.TotalItems += line.Quantity
		payload.Items = append(payload.Items, CartItem{
			PublicProduct: publicProduct(product),
			Quantity:      line.Quantity,
		})
	}
	return payload, nil
}

// AddToCart adds a product to the cart (quantity clamped to [1, 10]) and
// records the cart-add event.
func (s *Service) AddToCart(ctx context.Context, shopperName string, productID, quantity int) (CartPayload, error) {
	shopper, err := s.profiles.Ensure(ctx, shopperName)
	if err != nil {
		return CartPayload{}, err
	}
	if _, ok := s.catalog.ByID(productID); !ok {
		return CartPayload{}, domainProductErr(productID)
	}

	if quantity < 1 {
		quantity = 1
	}
	if quantity > 10 {
		quantity = 10
	}
	if err := s.profiles.AddCartItem(ctx, shopper, productID, quantity); err != nil {
		return CartPayload{}, err
	}
	if _, err := s.RecordFeedback(ctx, shopper, "cart_add", "", productID, fmt.Sprintf("%d", quantity)); err != nil {
		return CartPayload{}, err
	}
	return s.GetCart(ctx, shopper)
}

// RemoveFromCart deletes a cart line and returns the updated cart.
func (s *Service) RemoveFromCart(ctx context.Context, shopperName string, productID int) (CartPayload, error) {
	shopper, err := s.profiles.Ensure(ctx, shopperName)
	if err != nil {
		return CartPayload{}, err
	}
	if err := s.profiles.RemoveCartItem(ctx, shopper, productID); err != nil {
		return CartPayload{}, err
	}
	return s.GetCart(ctx, shopper)
}

func orUnspecified(value string) string {
	if cleaned := strings.TrimSpace(value); cleaned != "" {
		return cleaned
	}
	return "Unspecified"
}
