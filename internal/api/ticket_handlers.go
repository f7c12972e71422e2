package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk-io/campusdesk/internal/models"
	"github.com/campusdesk-io/campusdesk/internal/repository"
	"github.com/campusdesk-io/campusdesk/internal/services/escalation"
	"github.com/campusdesk-io/campusdesk/internal/services/ticket"
)

// TicketService is the ticket lifecycle surface the handlers need.
type TicketService interface {
	Create(ctx context.Context, p ticket.CreateParams) (*models.Ticket, error)
	Get(ctx context.Context, ticketID int64) (*models.Ticket, error)
	Activities(ctx context.Context, ticketID int64, visibilities ...models.ActivityVisibility) ([]*models.TicketActivity, error)
	TransitionStatus(ctx context.Context, ticketID, actorID int64, newStatus models.Status, comment string, visibility models.ActivityVisibility) error
	ReassignTicket(ctx context.Context, ticketID, actorID int64, newAssignee *int64, reason string) error
	ForwardTicket(ctx context.Context, ticketID, actorID, targetUserID int64, note string) error
	ReopenTicket(ctx context.Context, ticketID, actorID int64, reason string) error
	RateTicket(ctx context.Context, ticketID, actorID int64, rating int, comment string) error
	ExtendResolutionDue(ctx context.Context, ticketID, actorID int64, extraHours int, reason string) error
}

// AssignmentService resolves which tickets a staff member sees.
type AssignmentService interface {
	ListVisible(ctx context.Context, staffID int64) ([]*models.Ticket, error)
}

// EscalationService triggers the sweep on demand.
type EscalationService interface {
	RunSweep(ctx context.Context) (escalation.SweepResult, error)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps service error classes onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ticket.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ticket.ErrInvalidTransition), errors.Is(err, ticket.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, escalation.ErrSweepAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Printf("http: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createTicketRequest struct {
	CategoryID    int64  `json:"category_id" binding:"required"`
	SubcategoryID *int64 `json:"subcategory_id"`
	Location      string `json:"location"`
	Subject       string `json:"subject" binding:"required"`
	CreatedBy     int64  `json:"created_by" binding:"required"`
	ScopeID       *int64 `json:"scope_id"`
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := s.tickets.Create(c.Request.Context(), ticket.CreateParams{
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Location:      req.Location,
		Subject:       req.Subject,
		CreatedBy:     req.CreatedBy,
		ScopeID:       req.ScopeID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": t})
}

func (s *Server) handleGetTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := s.tickets.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

func (s *Server) handleListActivities(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var visibilities []models.ActivityVisibility
	for _, v := range c.QueryArray("visibility") {
		vis := models.ActivityVisibility(v)
		if !vis.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown visibility " + v})
			return
		}
		visibilities = append(visibilities, vis)
	}

	activities, err := s.tickets.Activities(c.Request.Context(), id, visibilities...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

type transitionRequest struct {
	Status     string `json:"status" binding:"required"`
	ActorID    int64  `json:"actor_id" binding:"required"`
	Comment    string `json:"comment"`
	Visibility string `json:"visibility"`
}

func (s *Server) handleTransitionStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.tickets.TransitionStatus(c.Request.Context(), id, req.ActorID,
		models.Status(req.Status), req.Comment, models.ActivityVisibility(req.Visibility))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

type reassignRequest struct {
	ActorID    int64  `json:"actor_id" binding:"required"`
	AssigneeID *int64 `json:"assignee_id"`
	Reason     string `json:"reason"`
}

func (s *Server) handleReassign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.tickets.ReassignTicket(c.Request.Context(), id, req.ActorID, req.AssigneeID, req.Reason); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignee_id": req.AssigneeID})
}

type forwardRequest struct {
	ActorID      int64  `json:"actor_id" binding:"required"`
	TargetUserID int64  `json:"target_user_id" binding:"required"`
	Note         string `json:"note"`
}

func (s *Server) handleForward(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req forwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.tickets.ForwardTicket(c.Request.Context(), id, req.ActorID, req.TargetUserID, req.Note); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forwarded_to": req.TargetUserID})
}

type reopenRequest struct {
	ActorID int64  `json:"actor_id" binding:"required"`
	Reason  string `json:"reason"`
}

func (s *Server) handleReopen(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reopenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.tickets.ReopenTicket(c.Request.Context(), id, req.ActorID, req.Reason); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusReopened)})
}

type ratingRequest struct {
	ActorID int64  `json:"actor_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (s *Server) handleRate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.tickets.RateTicket(c.Request.Context(), id, req.ActorID, req.Rating, req.Comment); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": req.Rating})
}

type extendRequest struct {
	ActorID    int64  `json:"actor_id" binding:"required"`
	ExtraHours int    `json:"extra_hours" binding:"required"`
	Reason     string `json:"reason"`
}

func (s *Server) handleExtend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.tickets.ExtendResolutionDue(c.Request.Context(), id, req.ActorID, req.ExtraHours, req.Reason); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extra_hours": req.ExtraHours})
}

func (s *Server) handleStaffTickets(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tickets, err := s.assignment.ListVisible(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (s *Server) handleRunSweep(c *gin.Context) {
	result, err := s.escalation.RunSweep(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"acknowledgement_escalated": result.AcknowledgementEscalated,
		"resolution_escalated":      result.ResolutionEscalated,
		"skipped":                   result.Skipped,
		"conflicts":                 result.Conflicts,
	})
}
