package genres

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 一覧は public、追加・無効化は admin のみ
func RegisterRoutes(public, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	public.GET("/genres", h.List)
	admin.POST("/genres", h.Create)
	admin.PATCH("/genres/:genre_id", h.SetDisabled)
}

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

func (h *Handler) List(c *gin.Context) {
	all := parseBoolish(c.Query("all"))
	res, err := h.svc.List(c.Request.Context(), all)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type createGenreRequest struct {
	GenreName string `json:"genre_name" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req.GenreName)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, res)
}

type setDisabledRequest struct {
	IsDisabled *bool `json:"is_disabled" binding:"required"`
}

func (h *Handler) SetDisabled(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("genre_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "genre_id must be a number"})
		return
	}
	var req setDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsDisabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.svc.SetDisabled(c.Request.Context(), id, *req.IsDisabled); err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
