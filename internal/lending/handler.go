package lending

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 参照系は public、貸出・返却は protected（司書トークン必須）に載せる
func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /borrow-records (貸出)
	protected.POST("/borrow-records", h.BorrowBook)
	// PUT /borrow-records/:key/return (返却)
	protected.PUT("/borrow-records/:key/return", h.ReturnBook)
	// GET /borrow-records (履歴・検索)
	public.GET("/borrow-records", h.ListRecords)
	// GET /users/:user_id/borrow-records (利用者の未返却)
	public.GET("/users/:user_id/borrow-records", h.ListForUser)
}

// ---------- handlers ----------

func (h *Handler) BorrowBook(c *gin.Context) {
	var req BorrowBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.BorrowBook(c.Request.Context(), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/borrow-records/"+res.RecordULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ReturnBook(c *gin.Context) {
	key := c.Param("key")
	res, err := h.svc.ReturnBook(c.Request.Context(), key)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListRecords(c *gin.Context) {
	f := RecordFilter{}
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.UserID = &id
		}
	}
	if v := c.Query("book_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.BookID = &id
		}
	}
	if v := c.Query("returned"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Returned = &b
		}
	}
	if v := c.Query("only_outstanding"); v == "true" || v == "1" {
		f.OnlyOutstanding = true
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}
	res, err := h.svc.ListRecords(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListForUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "user_id must be a number"))
		return
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}
	res, err := h.svc.ListOutstandingForUser(c.Request.Context(), userID, p)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
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

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
