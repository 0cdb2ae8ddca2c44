package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/pkg/db/pagination"
)

type listBookingsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	EventID   string `form:"event_id"`
	ClientID  string `form:"client_id"`
}

type managerActionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) ListBookings(c *gin.Context) {
	var query listBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	eventID, err := parseOptionalSnowflakeID(query.EventID)
	if err != nil {
		AbortWithError(c, newValidationError("event_id", "invalid_event_id", "invalid event_id"))
		return
	}
	clientID, err := parseOptionalSnowflakeID(query.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	}

	resp, err := s.bookingSvc.List(c.Request.Context(), bookingdomain.ListBookingRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:   bookingdomain.BookingStatus(query.Status),
		EventID:  eventID,
		ClientID: clientID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Bookings, "page_info": resp.PageInfo})
}

func (s *Server) GetBooking(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	booking, err := s.bookingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) ListBookingAudit(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	logs, err := s.bookingSvc.AuditTrail(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) CancelBooking(c *gin.Context) {
	s.managerTransition(c, func(tc bookingdomain.TransitionContext) (*bookingdomain.Booking, error) {
		id, _ := parseSnowflakeID(c.Param("id"))
		return s.bookingSvc.Cancel(c.Request.Context(), id, tc)
	})
}

func (s *Server) MarkNoShow(c *gin.Context) {
	s.managerTransition(c, func(tc bookingdomain.TransitionContext) (*bookingdomain.Booking, error) {
		id, _ := parseSnowflakeID(c.Param("id"))
		return s.transitions.Transition(c.Request.Context(), id, bookingdomain.ActionMarkNoShow, tc)
	})
}

func (s *Server) ProcessRefund(c *gin.Context) {
	s.managerTransition(c, func(tc bookingdomain.TransitionContext) (*bookingdomain.Booking, error) {
		id, _ := parseSnowflakeID(c.Param("id"))
		return s.transitions.Transition(c.Request.Context(), id, bookingdomain.ActionProcessRefund, tc)
	})
}

func (s *Server) managerTransition(c *gin.Context, apply func(bookingdomain.TransitionContext) (*bookingdomain.Booking, error)) {
	if _, err := parseSnowflakeID(c.Param("id")); err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	var req managerActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	booking, err := apply(bookingdomain.TransitionContext{
		Actor:   bookingdomain.ActorManager,
		ActorID: managerID(c),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}
