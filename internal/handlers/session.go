package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
)

type signInRequest struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type sessionResponse struct {
	User          *models.User `json:"user,omitempty"`
	Authenticated bool         `json:"authenticated"`
}

func sessionBody(d Deps) sessionResponse {
	resp := sessionResponse{Authenticated: d.Shop.Session().Authenticated()}
	if user, ok := d.Shop.Session().Current(); ok {
		resp.User = &user
	}
	return resp
}

func GetSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "GET /session")
		c.JSON(http.StatusOK, sessionBody(d))
	}
}

// SignIn stores a user and token issued by the remote auth endpoint.
func SignIn(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /session"
		defer d.handlePanic(c, route)

		var req signInRequest
		if !d.bindJSON(c, route, &req) {
			return
		}
		if err := d.Shop.SignIn(req.User, req.Token); err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, sessionBody(d))
	}
}

func SignOut(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "DELETE /session")
		d.Shop.SignOut()
		c.Status(http.StatusNoContent)
	}
}
