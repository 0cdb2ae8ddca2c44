package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"go.uber.org/zap"
)

// HandleLiqPayWebhook accepts the provider's form-encoded data/signature
// callback. Anything the provider should not resend is acknowledged with 200.
func (s *Server) HandleLiqPayWebhook(c *gin.Context) {
	data := strings.TrimSpace(c.PostForm("data"))
	signature := strings.TrimSpace(c.PostForm("signature"))
	if data == "" || signature == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.HandleWebhook(c.Request.Context(), data, signature)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrEventIgnored):
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		case errors.Is(err, paymentdomain.ErrNoPendingPayment):
			s.log.Warn("liqpay callback without pending payment", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "action": result.Action})
}
