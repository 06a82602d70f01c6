// Package fakesheet is an in-memory stand-in for the spreadsheet
// integration endpoints the row store client talks to. It backs the
// end-to-end tests and the `fakesheet` development command.
package fakesheet

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Options configures a Server.
type Options struct {
	IntegrationID string // empty accepts any
	SpreadsheetID string // empty accepts any
	SheetName     string
	SheetID       int
	AccessToken   string // when set, row overwrites require this bearer token
	Logger        *slog.Logger
}

type failure struct {
	status  int
	message string
	detail  string
}

// Server holds one sheet worth of rows.
type Server struct {
	opts   Options
	engine *gin.Engine

	mu       sync.Mutex
	rows     [][]string
	failures []failure
	requests int
}

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values,omitempty"`
}

type dimensionRange struct {
	SheetID    int    `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

type batchUpdateBody struct {
	Requests []struct {
		DeleteDimension *struct {
			Range dimensionRange `json:"range"`
		} `json:"deleteDimension"`
	} `json:"requests"`
}

// New creates a Server with an empty sheet.
func New(opts Options) *Server {
	if opts.SheetName == "" {
		opts.SheetName = "Sheet1"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{opts: opts}
	r := gin.New()
	r.Use(gin.Recovery(), s.countRequests(), s.injectFailures())
	r.GET("/:integration/:spreadsheet/values/*rest", s.checkIDs(), s.handleValuesGet)
	r.POST("/:integration/:spreadsheet/values/*rest", s.checkIDs(), s.handleAppend)
	r.PUT("/:integration/:spreadsheet/values/*rest", s.checkIDs(), s.checkToken(), s.handlePut)
	r.POST("/:integration/:spreadsheet", s.checkIDs(), s.handleBatchUpdate)
	s.engine = r
	return s
}

// Handler returns the HTTP handler serving the endpoints.
func (s *Server) Handler() http.Handler { return s.engine }

// Rows returns a copy of the current rows.
func (s *Server) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

// SetRows replaces the sheet contents.
func (s *Server) SetRows(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = copyRows(rows)
}

// FailNext makes the next request fail with the given status and body
// fields. Calls queue up.
func (s *Server) FailNext(status int, message, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, message: message, detail: detail})
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		s.opts.Logger.Debug("fakesheet: request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()
		if f != nil {
			body := gin.H{}
			if f.message != "" {
				body["message"] = f.message
			}
			if f.detail != "" {
				body["detail"] = f.detail
			}
			c.AbortWithStatusJSON(f.status, body)
			return
		}
		c.Next()
	}
}

func (s *Server) checkIDs() gin.HandlerFunc {
	return func(c *gin.Context) {
		spreadsheet := strings.TrimSuffix(c.Param("spreadsheet"), ":batchUpdate")
		if s.opts.IntegrationID != "" && c.Param("integration") != s.opts.IntegrationID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "integration not found"})
			return
		}
		if s.opts.SpreadsheetID != "" && spreadsheet != s.opts.SpreadsheetID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "spreadsheet not found"})
			return
		}
		c.Next()
	}
}

func (s *Server) checkToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.AccessToken == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.opts.AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid access token"})
			return
		}
		c.Next()
	}
}

// target splits the *rest wildcard into sheet name and suffix, e.g.
// "/Sheet1:append" -> ("Sheet1", ":append"), "/Sheet1!A3" -> ("Sheet1", "!A3").
func target(rest string) (sheet, suffix string) {
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexAny(rest, ":!"); i >= 0 {
		return rest[:i], rest[i:]
	}
	return rest, ""
}

func (s *Server) handleValuesGet(c *gin.Context) {
	sheet, suffix := target(c.Param("rest"))
	if sheet != s.opts.SheetName || suffix != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to parse range: " + sheet + suffix})
		return
	}
	s.mu.Lock()
	rows := copyRows(s.rows)
	s.mu.Unlock()

	c.JSON(http.StatusOK, valueRange{
		Range:          s.rangeFor(1, len(rows)),
		MajorDimension: "ROWS",
		Values:         rows,
	})
}

func (s *Server) handleAppend(c *gin.Context) {
	sheet, suffix := target(c.Param("rest"))
	if sheet != s.opts.SheetName || suffix != ":append" {
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown operation"})
		return
	}
	if c.Query("valueInputOption") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "valueInputOption is required"})
		return
	}
	var body valueRange
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid values", "detail": errText(err)})
		return
	}

	s.mu.Lock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, copyRows(body.Values)...)
	last := len(s.rows)
	s.mu.Unlock()

	updated := s.rangeFor(first, last)
	c.JSON(http.StatusOK, gin.H{
		"spreadsheetId": s.opts.SpreadsheetID,
		"tableRange":    s.rangeFor(1, first-1),
		"updates": gin.H{
			"spreadsheetId":  s.opts.SpreadsheetID,
			"updatedRange":   updated,
			"updatedRows":    len(body.Values),
			"updatedColumns": width(body.Values),
			"updatedCells":   cells(body.Values),
			"updatedData":    valueRange{Range: updated, MajorDimension: "ROWS", Values: body.Values},
		},
	})
}

func (s *Server) handlePut(c *gin.Context) {
	sheet, suffix := target(c.Param("rest"))
	if sheet != s.opts.SheetName || !strings.HasPrefix(suffix, "!A") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to parse range: " + sheet + suffix})
		return
	}
	rowNum, err := strconv.Atoi(strings.TrimPrefix(suffix, "!A"))
	if err != nil || rowNum < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to parse range: " + sheet + suffix})
		return
	}
	var body valueRange
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid values", "detail": errText(err)})
		return
	}

	s.mu.Lock()
	for i, row := range body.Values {
		idx := rowNum - 1 + i
		for len(s.rows) <= idx {
			s.rows = append(s.rows, []string{})
		}
		s.rows[idx] = append([]string(nil), row...)
	}
	s.mu.Unlock()

	updated := s.rangeFor(rowNum, rowNum+len(body.Values)-1)
	c.JSON(http.StatusOK, gin.H{
		"spreadsheetId":  s.opts.SpreadsheetID,
		"updatedRange":   updated,
		"updatedRows":    len(body.Values),
		"updatedColumns": width(body.Values),
		"updatedCells":   cells(body.Values),
		"updatedData":    valueRange{Range: updated, MajorDimension: "ROWS", Values: body.Values},
	})
}

func (s *Server) handleBatchUpdate(c *gin.Context) {
	if !strings.HasSuffix(c.Param("spreadsheet"), ":batchUpdate") {
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown operation"})
		return
	}
	var body batchUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Requests) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid requests", "detail": errText(err)})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replies := make([]gin.H, 0, len(body.Requests))
	for _, req := range body.Requests {
		if req.DeleteDimension == nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported request"})
			return
		}
		rng := req.DeleteDimension.Range
		if rng.SheetID != s.opts.SheetID {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("No grid with id: %d", rng.SheetID)})
			return
		}
		if rng.Dimension != "ROWS" || rng.StartIndex < 0 || rng.EndIndex <= rng.StartIndex || rng.StartIndex >= len(s.rows) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid deleteDimension range"})
			return
		}
		end := min(rng.EndIndex, len(s.rows))
		s.rows = append(s.rows[:rng.StartIndex], s.rows[end:]...)
		replies = append(replies, gin.H{})
	}
	c.JSON(http.StatusOK, gin.H{"spreadsheetId": s.opts.SpreadsheetID, "replies": replies})
}

func (s *Server) rangeFor(first, last int) string {
	if last < first {
		return s.opts.SheetName + "!A1"
	}
	return fmt.Sprintf("%s!A%d:E%d", s.opts.SheetName, first, last)
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		w = max(w, len(r))
	}
	return w
}

func cells(rows [][]string) int {
	n := 0
	for _, r := range rows {
		n += len(r)
	}
	return n
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
