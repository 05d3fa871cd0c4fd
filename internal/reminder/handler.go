package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyping/studyping/internal/domain"
	"github.com/studyping/studyping/internal/pkg/httputil"
	"github.com/studyping/studyping/internal/registry"
)

var registryErrorMappings = []httputil.ErrorMapping{
	{Error: registry.ErrDuplicateSubscription, Status: http.StatusConflict, Message: "a subscription already exists for this phone number"},
	{Error: registry.ErrNotFound, Status: http.StatusNotFound, Message: "no subscription found for this phone number"},
}

// The one phone rule, applied at the HTTP boundary only: loose E.164,
// optional leading +, 10-15 digits. Numbers are matched and stored as the
// exact string supplied; no normalization.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)

// CourseLister is the slice of the course client the /courses proxy needs.
type CourseLister interface {
	Courses(ctx context.Context, apiKey, baseURL string) ([]domain.Course, error)
}

// Handler serves the reminder and subscription endpoints.
type Handler struct {
	service   *Service
	courses   CourseLister
	registry  registry.Repository
	validator *validator.Validate
}

// NewHandler creates a reminder handler.
func NewHandler(service *Service, courses CourseLister, reg registry.Repository) *Handler {
	v := validator.New()
	// Registration only fails for empty tag names.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return &Handler{
		service:   service,
		courses:   courses,
		registry:  reg,
		validator: v,
	}
}

// RegisterRoutes registers the reminder routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/courses", h.ListCourses)
	r.Post("/send-assignment-reminder", h.SendReminder)
	r.Post("/subscribe", h.Subscribe)
	r.Post("/unsubscribe", h.Unsubscribe)
	r.Get("/subscription/{phoneNumber}", h.GetSubscription)
}

// CoursesRequest is the body for POST /courses.
type CoursesRequest struct {
	APIKey      string `json:"apiKey" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

// SendReminderRequest is the body for POST /send-assignment-reminder.
type SendReminderRequest struct {
	APIKey      string `json:"apiKey" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	CanvasURL   string `json:"canvasUrl" validate:"omitempty,url"`
	DaysAhead   int    `json:"daysAhead" validate:"omitempty,min=1,max=30"`
}

// SubscribeRequest is the body for POST /subscribe.
type SubscribeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	APIKey      string `json:"apiKey" validate:"required"`
	CanvasURL   string `json:"canvasUrl" validate:"omitempty,url"`
	DaysAhead   int    `json:"daysAhead" validate:"omitempty,min=1,max=30"`
}

// UnsubscribeRequest is the body for POST /unsubscribe.
type UnsubscribeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

// CourseView is the /courses response element.
type CourseView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"courseCode"`
}

// SubscriptionView is the subscription response shape. The stored API key
// is never echoed back.
type SubscriptionView struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	CanvasURL   string `json:"canvasUrl,omitempty"`
	DaysAhead   int    `json:"daysAhead"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
}

func subscriptionView(sub *domain.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:          sub.ID,
		PhoneNumber: sub.PhoneNumber,
		CanvasURL:   sub.CanvasBaseURL,
		DaysAhead:   sub.DaysAhead,
		IsActive:    sub.IsActive,
		CreatedAt:   sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListCourses handles POST /courses: proxies the subscriber's active
// course list.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	var req CoursesRequest
	if !h.decode(w, r, &req) {
		return
	}

	courses, err := h.courses.Courses(r.Context(), req.APIKey, "")
	if err != nil {
		httputil.Fail(w, StatusForError(err), UserMessage(err))
		return
	}

	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, CourseView{ID: c.ID, Name: c.Name, CourseCode: c.CourseCode})
	}
	httputil.OK(w, http.StatusOK, "", map[string]interface{}{"courses": views})
}

// SendReminder handles POST /send-assignment-reminder: one on-demand cycle.
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	var req SendReminderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.RunCycle(r.Context(), CycleInput{
		PhoneNumber:   req.PhoneNumber,
		APIKey:        req.APIKey,
		CanvasBaseURL: req.CanvasURL,
		DaysAhead:     req.DaysAhead,
	})
	if err != nil {
		httputil.Fail(w, StatusForError(err), UserMessage(err))
		return
	}

	httputil.OK(w, http.StatusOK, "Reminder sent!", result)
}

// Subscribe handles POST /subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	sub, err := h.registry.Create(r.Context(), registry.CreateInput{
		PhoneNumber:   req.PhoneNumber,
		APIKey:        req.APIKey,
		CanvasBaseURL: req.CanvasURL,
		DaysAhead:     req.DaysAhead,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, registryErrorMappings)
		return
	}

	httputil.OK(w, http.StatusCreated, "Subscribed to daily reminders", subscriptionView(sub))
}

// Unsubscribe handles POST /unsubscribe: deactivates in place, keeping the
// record.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.registry.Deactivate(r.Context(), req.PhoneNumber); err != nil {
		httputil.HandleError(r.Context(), w, err, registryErrorMappings)
		return
	}

	httputil.OK(w, http.StatusOK, "Unsubscribed from daily reminders", nil)
}

// GetSubscription handles GET /subscription/{phoneNumber}.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phoneNumber")
	if !phonePattern.MatchString(phone) {
		httputil.Fail(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	sub, err := h.registry.Get(r.Context(), phone)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, registryErrorMappings)
		return
	}

	httputil.OK(w, http.StatusOK, "", subscriptionView(sub))
}

// decode parses and validates a JSON request body. Writes the error
// response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httputil.Fail(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}
