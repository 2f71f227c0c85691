// Package http exposes the storefront over REST and WebSocket.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/cart"
	"github.com/Nagulan13/oboma/internal/checkout"
	"github.com/Nagulan13/oboma/internal/feedback"
	"github.com/Nagulan13/oboma/internal/menu"
	"github.com/Nagulan13/oboma/internal/middleware"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/payment"
	"github.com/Nagulan13/oboma/internal/realtime"
	"github.com/Nagulan13/oboma/internal/report"
	"github.com/Nagulan13/oboma/internal/settings"
	"github.com/Nagulan13/oboma/internal/staffing"
)

type MenuService interface {
	Get(ctx context.Context, id string) (menu.Item, error)
	List(ctx context.Context) ([]menu.Item, error)
	Save(ctx context.Context, item menu.Item) (menu.Item, error)
	Delete(ctx context.Context, id string) error
}

type CartService interface {
	Get(ctx context.Context, userID string) (cart.Cart, error)
	AddItem(ctx context.Context, userID, menuItemID string, quantity int, specialRequest string) (cart.Cart, error)
	UpdateItem(ctx context.Context, userID string, key cart.LineKey, u cart.Update) (cart.Cart, error)
	RemoveItem(ctx context.Context, userID string, key cart.LineKey) (cart.Cart, error)
}

type CheckoutService interface {
	Begin(ctx context.Context, userID string) (checkout.Attempt, error)
	Confirm(ctx context.Context, userID, attemptID, paymentIntentID string) (checkout.Attempt, error)
	Cancel(ctx context.Context, userID, attemptID string) (checkout.Attempt, error)
	Get(userID, attemptID string) (checkout.Attempt, error)
	PublishableKey(ctx context.Context) (string, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (order.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error)
	ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error)
	SearchByID(ctx context.Context, fragment string) ([]order.Order, error)
}

type PaymentReader interface {
	GetByOrder(ctx context.Context, orderID string) (payment.Payment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]payment.Payment, error)
}

type StatusService interface {
	Advance(ctx context.Context, orderID string, target order.Status) (order.Order, error)
	Cancel(ctx context.Context, orderID string) (order.Order, error)
}

type FeedbackService interface {
	Eligible(ctx context.Context, customerID, orderID, itemID string) (bool, error)
	Submit(ctx context.Context, customerID string, in feedback.Submission) (feedback.Feedback, error)
	SetVisible(ctx context.Context, id string, visible bool) (feedback.Feedback, error)
	ListVisible(ctx context.Context, itemID string) ([]feedback.PublicFeedback, error)
	List(ctx context.Context) ([]feedback.Feedback, error)
}

type SettingsService interface {
	Get(ctx context.Context) (settings.JobVacancySetting, error)
	SetJobVacancyOpen(ctx context.Context, open bool) (settings.JobVacancySetting, error)
	Watch(ctx context.Context) (<-chan settings.Visibility, error)
}

type StaffingService interface {
	Submit(ctx context.Context, applicantID string, in staffing.Applicant) (staffing.Application, error)
	ListApplications(ctx context.Context, status string) ([]staffing.Application, error)
	Approve(ctx context.Context, applicationID, remarks string) (staffing.Staff, error)
	Reject(ctx context.Context, applicationID, remarks string) (staffing.Application, error)
	Terminate(ctx context.Context, staffID, reason string) (staffing.Staff, error)
	ListStaff(ctx context.Context) ([]staffing.Staff, error)
}

type ReportService interface {
	Monthly(ctx context.Context, from, to time.Time) ([]report.MonthSummary, error)
}

type Subscriber interface {
	Subscribe(path string) *realtime.Subscription
}

type Deps struct {
	Menu     MenuService
	Carts    CartService
	Checkout CheckoutService
	Orders   OrderReader
	Payments PaymentReader
	Status   StatusService
	Feedback FeedbackService
	Settings SettingsService
	Staffing StaffingService
	Reports  ReportService
	Hub      Subscriber
	Tokens   middleware.TokenParser

	Logger      zerolog.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	h := &handler{deps: d, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(middleware.Authenticate(d.Tokens))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", h.listMenu)
		r.Get("/menu/{itemId}", h.getMenuItem)
		r.Get("/menu/{itemId}/feedback", h.listItemFeedback)
		r.Get("/settings/job-vacancy", h.getJobVacancy)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items", h.updateCartItem)
			r.Delete("/cart/items", h.removeCartItem)

			r.Get("/checkout/publishable-key", h.publishableKey)
			r.Post("/checkout", h.beginCheckout)
			r.Get("/checkout/{attemptId}", h.getCheckout)
			r.Post("/checkout/{attemptId}/confirm", h.confirmCheckout)
			r.Post("/checkout/{attemptId}/cancel", h.cancelCheckout)

			r.Get("/orders", h.listMyOrders)
			r.Get("/orders/{orderId}", h.getOrder)
			r.Get("/orders/{orderId}/payment", h.getOrderPayment)
			r.Get("/payments", h.listMyPayments)

			r.Get("/feedback/eligibility", h.feedbackEligibility)
			r.Post("/feedback", h.submitFeedback)

			r.Post("/job-applications", h.submitApplication)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleStaff))
			r.Get("/orders", h.listOrdersByStatus)
			r.Get("/orders/search", h.searchOrders)
			r.Post("/orders/{orderId}/status", h.advanceOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Put("/menu/{itemId}", h.saveMenuItem)
			r.Delete("/menu/{itemId}", h.deleteMenuItem)
			r.Post("/orders/{orderId}/cancel", h.cancelOrder)
			r.Get("/feedback", h.listFeedback)
			r.Patch("/feedback/{id}", h.setFeedbackVisible)
			r.Put("/settings/job-vacancy", h.setJobVacancy)
			r.Get("/job-applications", h.listApplications)
			r.Post("/job-applications/{id}/approve", h.approveApplication)
			r.Post("/job-applications/{id}/reject", h.rejectApplication)
			r.Get("/staff", h.listStaff)
			r.Post("/staff/{id}/terminate", h.terminateStaff)
			r.Get("/reports/monthly", h.monthlyReport)
		})
	})

	r.With(middleware.RequireAuth).Get("/ws/documents", h.subscribeDocuments)
	r.Get("/ws/visibility", h.watchVisibility)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "oboma-storefront",
	})
}
