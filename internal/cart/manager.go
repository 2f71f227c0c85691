package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/menu"
)

// MenuLookup resolves the current name, price and image of a menu item.
type MenuLookup interface {
	Get(ctx context.Context, id string) (menu.Item, error)
}

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
	NotifyDeleted(ctx context.Context, path string) error
}

// Manager owns the mapping from a signed-in user to their pending lines.
type Manager struct {
	repo     Repository
	menu     MenuLookup
	notifier Notifier
	logger   zerolog.Logger
}

func NewManager(repo Repository, menu MenuLookup, notifier Notifier, logger zerolog.Logger) *Manager {
	return &Manager{repo: repo, menu: menu, notifier: notifier, logger: logger}
}

func (m *Manager) Get(ctx context.Context, userID string) (Cart, error) {
	if userID == "" {
		return Cart{}, apperr.ErrUnauthenticated
	}
	return m.repo.Get(ctx, userID)
}

// load returns the user's cart, or an empty one when none exists yet.
func (m *Manager) load(ctx context.Context, userID string) (Cart, error) {
	c, err := m.repo.Get(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Cart{UserID: userID}, nil
	}
	return c, err
}

func (m *Manager) AddItem(ctx context.Context, userID, menuItemID string, quantity int, specialRequest string) (Cart, error) {
	if userID == "" {
		return Cart{}, apperr.ErrUnauthenticated
	}
	if menuItemID == "" {
		return Cart{}, apperr.Invalid("menuItemId", "is required")
	}
	if quantity < 1 {
		return Cart{}, apperr.Invalid("quantity", "must be at least 1")
	}

	mi, err := m.menu.Get(ctx, menuItemID)
	if err != nil {
		return Cart{}, err
	}
	if !mi.Available {
		return Cart{}, apperr.Invalid("menuItemId", fmt.Sprintf("%s is not available", mi.Name))
	}

	c, err := m.load(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	c.add(Item{
		MenuItemID:     mi.ID,
		Name:           mi.Name,
		UnitPrice:      mi.Price,
		Quantity:       quantity,
		SpecialRequest: strings.TrimSpace(specialRequest),
		ImageURL:       mi.ImageURL,
	})
	return c, m.save(ctx, &c)
}

func (m *Manager) UpdateItem(ctx context.Context, userID string, key LineKey, u Update) (Cart, error) {
	if userID == "" {
		return Cart{}, apperr.ErrUnauthenticated
	}
	if u.Quantity != nil && *u.Quantity < 1 {
		return Cart{}, apperr.Invalid("quantity", "must be at least 1")
	}
	if u.SpecialRequest != nil {
		trimmed := strings.TrimSpace(*u.SpecialRequest)
		u.SpecialRequest = &trimmed
	}

	c, err := m.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if !c.update(key, u) {
		return Cart{}, fmt.Errorf("cart line %s: %w", key.MenuItemID, apperr.ErrNotFound)
	}
	return c, m.save(ctx, &c)
}

// RemoveItem drops a line. Removing the last line deletes the cart.
func (m *Manager) RemoveItem(ctx context.Context, userID string, key LineKey) (Cart, error) {
	if userID == "" {
		return Cart{}, apperr.ErrUnauthenticated
	}

	c, err := m.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if !c.remove(key) {
		return Cart{}, fmt.Errorf("cart line %s: %w", key.MenuItemID, apperr.ErrNotFound)
	}
	return c, m.save(ctx, &c)
}

// Clear deletes the user's cart document.
func (m *Manager) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.ErrUnauthenticated
	}
	if err := m.repo.Delete(ctx, userID); err != nil {
		return err
	}
	m.publishDeleted(ctx, userID)
	return nil
}

func (m *Manager) save(ctx context.Context, c *Cart) error {
	if len(c.Items) == 0 {
		if err := m.repo.Delete(ctx, c.UserID); err != nil {
			return err
		}
		m.publishDeleted(ctx, c.UserID)
		return nil
	}

	if err := m.repo.Replace(ctx, c); err != nil {
		return err
	}
	if err := m.notifier.Notify(ctx, Path(c.UserID), view(*c)); err != nil {
		m.logger.Warn().Err(err).Str("user_id", c.UserID).Msg("notify cart change")
	}
	return nil
}

func (m *Manager) publishDeleted(ctx context.Context, userID string) {
	if err := m.notifier.NotifyDeleted(ctx, Path(userID)); err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("notify cart deletion")
	}
}

// View is the cart document as sent to clients, with the derived total.
type View struct {
	Cart
	PayableAmount int64 `json:"payableAmount"`
}

func view(c Cart) View {
	return View{Cart: c, PayableAmount: PayableAmount(c)}
}

// NewView attaches the derived payable amount to a cart.
func NewView(c Cart) View { return view(c) }
