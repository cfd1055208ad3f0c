package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"carmarket/internal/domain"
	"carmarket/internal/service"
)

const sessionCookieName = "session"

const contextKeyUser = "current_user"

func (h *Handler) registerForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", h.pageData(c, gin.H{"Username": "", "Email": ""}))
}

func (h *Handler) register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	_, err := h.users.Register(c.Request.Context(), username, email, password, confirm)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, service.ErrDuplicateUser):
			message = fmt.Sprintf("User %s or email %s is already registered.", username, email)
		default:
			if verr, ok := service.AsValidation(err); ok {
				message = verr.Message
			} else {
				h.logger.WithError(err).Error("register user")
				message = "An error occurred during registration. Please try again."
			}
		}
		page := h.pageData(c, gin.H{"Username": username, "Email": email})
		page["Flash"] = &flashMessage{Category: "danger", Message: message}
		c.HTML(http.StatusOK, "register.html", page)
		return
	}

	h.flashRedirect(c, "success", "Registration successful! Please log in.", "/login")
}

func (h *Handler) loginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.pageData(c, gin.H{"Username": ""}))
}

func (h *Handler) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.users.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, service.ErrUnknownUsername):
			message = "Incorrect username."
		case errors.Is(err, service.ErrWrongPassword):
			message = "Incorrect password."
		default:
			h.logger.WithError(err).Error("authenticate user")
			message = "An error occurred during login. Please try again."
		}
		page := h.pageData(c, gin.H{"Username": username})
		page["Flash"] = &flashMessage{Category: "danger", Message: message}
		c.HTML(http.StatusOK, "login.html", page)
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.WithError(err).Error("issue session token")
		page := h.pageData(c, gin.H{"Username": username})
		page["Flash"] = &flashMessage{Category: "danger", Message: "An error occurred during login. Please try again."}
		c.HTML(http.StatusOK, "login.html", page)
		return
	}

	c.SetCookie(sessionCookieName, token, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	h.flashRedirect(c, "success", "You have successfully logged in!", "/")
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
	h.flashRedirect(c, "info", "You have been logged out.", "/")
}

// resolveUser loads the current user from the session cookie before every
// request. Missing or invalid tokens, and tokens for users that no longer
// exist, resolve to anonymous.
func (h *Handler) resolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := h.sessions.Parse(token)
		if err != nil {
			c.Next()
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Next()
			return
		}

		c.Set(contextKeyUser, user)
		c.Next()
	}
}

// requireUser gates a route on a resolved user, redirecting anonymous
// visitors to the login page with a warning.
func (h *Handler) requireUser(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			setFlash(c, "warning", message)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil
	}
	user, ok := v.(*domain.User)
	if !ok {
		return nil
	}
	return user
}
