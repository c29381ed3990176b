package stub

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

type tokenRequest struct {
	UserID    string `json:"userId" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
	User      models.User `json:"user"`
}

// IssueToken hands out a signed token for any user id. Development only.
func (s *Server) IssueToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/token"
		defer s.handlePanic(c, route)

		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
			s.respondWithError(c, http.StatusBadRequest, route, "userId is required")
			return
		}

		token, err := middleware.IssueUserToken(req.UserID, req.Email, s.secret, s.tokenTTL, s.now())
		if err != nil {
			s.respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}
		c.JSON(http.StatusOK, tokenResponse{
			Token:     token,
			ExpiresIn: int64(s.tokenTTL.Seconds()),
			User: models.User{
				ID:        req.UserID,
				Email:     req.Email,
				FirstName: req.FirstName,
				LastName:  req.LastName,
			},
		})
	}
}
