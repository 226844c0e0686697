package books

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 参照系は public、更新系は protected（司書トークン必須）に載せる
func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	public.GET("/books", h.ListBooks)
	public.GET("/books/:key", h.GetBook)

	protected.POST("/books", h.CreateBook)
	protected.PUT("/books/:key", h.UpdateBook)
	protected.DELETE("/books/:key", h.DeleteBook)
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiErr(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.CreateBook(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.Header("Location", "/books/"+res.BookULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBookByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListBooks(c *gin.Context) {
	f := BookFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
		Genre:  c.Query("genre"),
	}
	if v := c.Query("available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Available = &b
		}
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}
	res, err := h.svc.ListBooks(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiErr(CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.UpdateBook(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), c.Param("key")); err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func apiErr(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func apiErrFrom(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return apiErr(code, msg)
}
