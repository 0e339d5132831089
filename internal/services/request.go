package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
)

// Request sources recorded in metrics
const (
	SourceVoice     = "voice"
	SourceDashboard = "dashboard"
)

// RequestService manages guest service requests
type RequestService struct {
	store     storage.Store
	notifier  *Notifier
	broadcast Broadcaster
	events    *events.Publisher
	now       func() time.Time
}

func NewRequestService(store storage.Store, notifier *Notifier, broadcast Broadcaster, publisher *events.Publisher) *RequestService {
	return &RequestService{
		store:     store,
		notifier:  notifier,
		broadcast: orNop(broadcast),
		events:    publisher,
		now:       time.Now,
	}
}

func (s *RequestService) List(ctx context.Context, tenantID string, filter models.RequestFilter) ([]*models.Request, int64, error) {
	return s.store.ListRequests(ctx, tenantID, filter)
}

// Get returns a request with its message thread
func (s *RequestService) Get(ctx context.Context, tenantID, requestID string) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	req.Messages = make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		req.Messages = append(req.Messages, *m)
	}
	return req, nil
}

// Create records a request raised from the dashboard
func (s *RequestService) Create(ctx context.Context, actor Actor, in models.CreateRequestInput) (*models.Request, error) {
	req := &models.Request{
		TenantID:    actor.TenantID,
		RoomNumber:  in.RoomNumber,
		GuestName:   in.GuestName,
		Type:        in.Type,
		Description: in.Description,
		Priority:    in.Priority,
	}
	if err := s.create(ctx, req, SourceDashboard); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateFromCall records a request captured by the voice assistant
func (s *RequestService) CreateFromCall(ctx context.Context, req *models.Request) error {
	return s.create(ctx, req, SourceVoice)
}

func (s *RequestService) create(ctx context.Context, req *models.Request, source string) error {
	ctx, span := telemetry.StartSpan(ctx, "request.create")
	defer span.End()

	if err := s.store.CreateRequest(ctx, req); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if _, err := s.store.IncrementUsage(ctx, req.TenantID, models.PeriodOf(s.now()), models.UsageDelta{Requests: 1}); err != nil {
		logger.FromContext(ctx).Warn("Failed to count request usage", zap.Error(err))
	}
	metrics.RequestsCreatedTotal.WithLabelValues(req.Type, source).Inc()

	logger.FromContext(ctx).Info("Request created",
		zap.String("request_id", req.RequestID),
		zap.String("type", req.Type),
		zap.String("priority", req.Priority),
		zap.String("source", source))

	s.broadcast.Broadcast(ctx, req.TenantID, realtime.RequestCreated, req)
	s.events.Publish(ctx, events.New(events.RequestCreated, req.TenantID, req))

	if tenant, err := s.store.GetTenant(ctx, req.TenantID); err == nil {
		s.notifier.SMS(ctx, tenant.Phone, TemplateNewRequestAlert, map[string]string{
			"priority":    req.Priority,
			"room":        req.RoomNumber,
			"type":        req.Type,
			"description": req.Description,
			"request_id":  req.RequestID,
		})
	}
	return nil
}

// UpdateStatus applies a lifecycle transition
func (s *RequestService) UpdateStatus(ctx context.Context, actor Actor, requestID string, in models.UpdateStatusInput) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, actor.TenantID, requestID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(req.Status, in.Status) {
		return nil, ErrInvalidTransition
	}

	previous := req.Status
	req.Status = in.Status
	if in.Resolution != "" {
		req.Resolution = in.Resolution
	}
	if in.Status == models.RequestStatusCompleted {
		now := s.now()
		req.CompletedAt = &now
	}
	if in.Status == models.RequestStatusInProgress && req.AssignedTo == "" {
		req.AssignedTo = actor.StaffID
	}
	if err := s.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Request status changed",
		zap.String("request_id", req.RequestID),
		zap.String("from", previous),
		zap.String("to", req.Status),
		zap.String("by", actor.StaffID))

	s.broadcast.Broadcast(ctx, req.TenantID, realtime.RequestUpdated, req)
	if req.Status == models.RequestStatusCompleted {
		s.events.Publish(ctx, events.New(events.RequestCompleted, req.TenantID, req))
	}
	return req, nil
}

// Assign hands a request to an active staff member of the same hotel
func (s *RequestService) Assign(ctx context.Context, actor Actor, requestID, staffID string) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, actor.TenantID, requestID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminal(req.Status) {
		return nil, ErrInvalidTransition
	}

	assignee, err := s.store.GetStaff(ctx, actor.TenantID, staffID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAssigneeInvalid
	}
	if err != nil {
		return nil, err
	}
	if !assignee.IsActive {
		return nil, ErrAssigneeInvalid
	}

	req.AssignedTo = assignee.StaffID
	if err := s.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.broadcast.Broadcast(ctx, req.TenantID, realtime.RequestUpdated, req)
	return req, nil
}

// AddMessage appends a note to the request thread
func (s *RequestService) AddMessage(ctx context.Context, actor Actor, requestID, body string) (*models.Message, error) {
	msg := &models.Message{
		RequestID:  requestID,
		TenantID:   actor.TenantID,
		AuthorID:   actor.StaffID,
		AuthorName: actor.Name,
		AuthorRole: models.AuthorStaff,
		Body:       body,
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.broadcast.Broadcast(ctx, actor.TenantID, realtime.RequestMessage, msg)
	return msg, nil
}

func (s *RequestService) ListMessages(ctx context.Context, tenantID, requestID string) ([]*models.Message, error) {
	return s.store.ListMessages(ctx, tenantID, requestID)
}

// EscalateStale bumps the priority of requests pending longer than after and alerts the front desk.
// It returns the number of escalated requests.
func (s *RequestService) EscalateStale(ctx context.Context, after time.Duration) (int, error) {
	now := s.now()
	stale, err := s.store.GetStaleRequests(ctx, now.Add(-after))
	if err != nil {
		return 0, err
	}

	escalated := 0
	tenants := make(map[string]*models.Tenant)
	for _, req := range stale {
		req.Priority = models.NextPriority(req.Priority)
		req.EscalatedAt = &now
		if err := s.store.UpdateRequest(ctx, req); err != nil {
			logger.FromContext(ctx).Error("Failed to escalate request",
				zap.String("request_id", req.RequestID), zap.Error(err))
			continue
		}
		escalated++
		metrics.RequestsEscalatedTotal.Inc()

		msg := &models.Message{
			RequestID:  req.RequestID,
			TenantID:   req.TenantID,
			AuthorName: "GuestVoice",
			AuthorRole: models.AuthorSystem,
			Body:       "Escalated to " + req.Priority + " after waiting " + strconv.Itoa(int(now.Sub(req.CreatedAt).Minutes())) + " minutes",
		}
		if err := s.store.AddMessage(ctx, msg); err != nil {
			logger.FromContext(ctx).Warn("Failed to add escalation note", zap.Error(err))
		}

		tenant, ok := tenants[req.TenantID]
		if !ok {
			tenant, _ = s.store.GetTenant(ctx, req.TenantID)
			tenants[req.TenantID] = tenant
		}
		if tenant != nil {
			s.notifier.SMS(ctx, tenant.Phone, TemplateRequestEscalated, map[string]string{
				"room":       req.RoomNumber,
				"type":       req.Type,
				"minutes":    strconv.Itoa(int(now.Sub(req.CreatedAt).Minutes())),
				"priority":   req.Priority,
				"request_id": req.RequestID,
			})
		}
		s.broadcast.Broadcast(ctx, req.TenantID, realtime.RequestUpdated, req)
	}
	return escalated, nil
}
