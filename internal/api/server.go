// Package api exposes the engine over HTTP. Handlers stay thin: bind,
// delegate to a service, map the error class to a status code.
package api

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the handler dependencies and builds the router.
type Server struct {
	db         *sql.DB
	tickets    TicketService
	assignment AssignmentService
	escalation EscalationService
	logger     *log.Logger
}

// NewServer wires the HTTP layer over the domain services.
func NewServer(db *sql.DB, tickets TicketService, assignment AssignmentService, escalation EscalationService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		db:         db,
		tickets:    tickets,
		assignment: assignment,
		escalation: escalation,
		logger:     logger,
	}
}

// Router assembles the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/tickets", s.handleCreateTicket)
		apiGroup.GET("/tickets/:id", s.handleGetTicket)
		apiGroup.GET("/tickets/:id/activities", s.handleListActivities)
		apiGroup.POST("/tickets/:id/status", s.handleTransitionStatus)
		apiGroup.POST("/tickets/:id/assignee", s.handleReassign)
		apiGroup.POST("/tickets/:id/forward", s.handleForward)
		apiGroup.POST("/tickets/:id/reopen", s.handleReopen)
		apiGroup.POST("/tickets/:id/rating", s.handleRate)
		apiGroup.POST("/tickets/:id/extend", s.handleExtend)

		apiGroup.GET("/staff/:id/tickets", s.handleStaffTickets)

		apiGroup.POST("/admin/escalations/run", s.handleRunSweep)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Printf("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// handleHealthz pings the database so load balancers drop broken instances.
func (s *Server) handleHealthz(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
