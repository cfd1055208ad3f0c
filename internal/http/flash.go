package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const flashCookieName = "flash"

// flashMessage is one-shot user feedback shown on the next rendered page.
type flashMessage struct {
	Category string
	Message  string
}

func setFlash(c *gin.Context, category, message string) {
	c.SetCookie(flashCookieName, category+"|"+message, 60, "/", "", false, true)
}

// takeFlash reads and clears the pending flash message, if any.
func takeFlash(c *gin.Context) *flashMessage {
	raw, err := c.Cookie(flashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)

	category, message, found := strings.Cut(raw, "|")
	if !found || message == "" {
		return nil
	}
	return &flashMessage{Category: category, Message: message}
}

// pageData assembles the template payload shared by every page: the current
// user and any pending flash message, merged with page-specific values.
func (h *Handler) pageData(c *gin.Context, data gin.H) gin.H {
	page := gin.H{
		"User":  currentUser(c),
		"Flash": takeFlash(c),
	}
	for k, v := range data {
		page[k] = v
	}
	return page
}

func (h *Handler) flashRedirect(c *gin.Context, category, message, location string) {
	setFlash(c, category, message)
	c.Redirect(http.StatusFound, location)
}
