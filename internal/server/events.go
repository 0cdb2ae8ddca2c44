package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
)

type eventView struct {
	ID             snowflake.ID `json:"id"`
	Title          string       `json:"title"`
	Slug           string       `json:"slug"`
	Location       string       `json:"location,omitempty"`
	CapacityMin    int          `json:"capacity_min"`
	CapacityMax    int          `json:"capacity_max"`
	PricePerPerson int64        `json:"price_per_person"`
	BasePrice      int64        `json:"base_price"`
	DepositPercent int          `json:"deposit_percent"`
	Currency       string       `json:"currency"`
	DateStart      time.Time    `json:"date_start"`
	DateEnd        time.Time    `json:"date_end"`
}

func newEventView(e *eventdomain.Event) eventView {
	return eventView{
		ID:             e.ID,
		Title:          e.Title,
		Slug:           e.Slug,
		Location:       e.Location,
		CapacityMin:    e.CapacityMin,
		CapacityMax:    e.CapacityMax,
		PricePerPerson: e.PricePerPerson,
		BasePrice:      e.BasePrice,
		DepositPercent: e.DepositPercent,
		Currency:       e.Currency,
		DateStart:      e.DateStart,
		DateEnd:        e.DateEnd,
	}
}

// ListEvents returns published events that have not started yet.
func (s *Server) ListEvents(c *gin.Context) {
	events, err := s.events.ListPublished(c.Request.Context(), s.db, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) GetEventBySlug(c *gin.Context) {
	event, err := s.events.FindBySlug(c.Request.Context(), s.db, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if event == nil || !event.IsPublished() {
		AbortWithError(c, eventdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newEventView(event)})
}
