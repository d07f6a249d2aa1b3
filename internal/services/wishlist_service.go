package services

import (
	"context"
	"sort"

	"eyewear/internal/domain"
	applog "eyewear/internal/log"
	"eyewear/internal/pricing"
)

// IDSet is the set of product ids in a user's wishlist.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order.
func (s IDSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) clone() IDSet {
	out := make(IDSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

type WishlistService struct {
	Store       WishlistStore
	Policy      pricing.Policy
	Placeholder string
}

func NewWishlistService(store WishlistStore, policy pricing.Policy, placeholder string) *WishlistService {
	return &WishlistService{Store: store, Policy: policy, Placeholder: placeholder}
}

func (s *WishlistService) products(ctx context.Context, u *domain.User) ([]domain.Product, error) {
	if u == nil || u.ID == "" {
		return nil, ErrUnauthenticated
	}
	return s.Store.GetWishlist(ctx, u.ID)
}

// IDs loads the current wishlist membership from the backend.
func (s *WishlistService) IDs(ctx context.Context, u *domain.User) (IDSet, error) {
	ps, err := s.products(ctx, u)
	if err != nil {
		return nil, err
	}
	set := make(IDSet, len(ps))
	for _, p := range ps {
		set[p.ID] = struct{}{}
	}
	return set, nil
}

// List returns the wishlist priced for display.
func (s *WishlistService) List(ctx context.Context, u *domain.User) ([]pricing.Listing, error) {
	ps, err := s.products(ctx, u)
	if err != nil {
		return nil, err
	}
	return pricing.Listings(ps, s.Policy, s.Placeholder), nil
}

// Toggle adds productID when absent and removes it when present. The returned
// set reflects the backend after the change; when the add/remove call fails
// the set is the one read before the call, unchanged, alongside the error.
func (s *WishlistService) Toggle(ctx context.Context, u *domain.User, productID string) (IDSet, bool, error) {
	current, err := s.IDs(ctx, u)
	if err != nil {
		return nil, false, err
	}
	if current.Has(productID) {
		return s.apply(ctx, u, current, productID, false)
	}
	return s.apply(ctx, u, current, productID, true)
}

func (s *WishlistService) Remove(ctx context.Context, u *domain.User, productID string) (IDSet, error) {
	current, err := s.IDs(ctx, u)
	if err != nil {
		return nil, err
	}
	set, _, err := s.apply(ctx, u, current, productID, false)
	return set, err
}

func (s *WishlistService) apply(ctx context.Context, u *domain.User, current IDSet, productID string, add bool) (IDSet, bool, error) {
	var err error
	if add {
		err = s.Store.AddToWishlist(ctx, u.ID, productID)
	} else {
		err = s.Store.RemoveFromWishlist(ctx, u.ID, productID)
	}
	if err != nil {
		return current, current.Has(productID), err
	}

	refreshed, err := s.IDs(ctx, u)
	if err != nil {
		// the change is confirmed; mirror it locally
		applog.L().Warn().Err(err).Str("user_id", u.ID).Msg("wishlist: refresh after change failed")
		refreshed = current.clone()
		if add {
			refreshed[productID] = struct{}{}
		} else {
			delete(refreshed, productID)
		}
	}
	return refreshed, refreshed.Has(productID), nil
}
