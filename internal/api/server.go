package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/david/stayrank/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	Store *db.Store
	Echo  *echo.Echo
}

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Store: db.NewStore(pool),
		Echo:  e,
	}

	api := e.Group("/api")
	api.GET("/listings", s.handleListListings)
	api.GET("/listings/:ref", s.handleGetListing)
	api.POST("/session", s.handleCreateSession)
	api.GET("/duel", s.handleDuel)
	api.POST("/votes", s.handleVote, s.requireSession)
	api.GET("/standings", s.handleStandings)

	return s
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleListListings(c echo.Context) error {
	params := db.ListParams{
		SortBy: c.QueryParam("sort"),
		Limit:  50,
	}
	if v := c.QueryParam("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "min_score must be a number")
		}
		params.MinScore = score
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be 1-200")
		}
		params.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be >= 0")
		}
		params.Offset = offset
	}

	listings, err := s.Store.ListRanked(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"listings": listings,
		"count":    len(listings),
	})
}

func (s *Server) handleGetListing(c echo.Context) error {
	ref := c.Param("ref")
	rl, err := s.Store.GetByRef(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "listing not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rl)
}

func (s *Server) handleCreateSession(c echo.Context) error {
	token, sessionID, err := issueSession()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"token":      token,
		"session_id": sessionID.String(),
	})
}

func (s *Server) handleDuel(c echo.Context) error {
	duel, err := s.Store.RandomPair(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, duel)
}

type voteRequest struct {
	WinnerRef string `json:"winner_ref"`
	LoserRef  string `json:"loser_ref"`
}

func (s *Server) handleVote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vote payload")
	}
	if req.WinnerRef == "" || req.LoserRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "winner_ref and loser_ref are required")
	}
	if req.WinnerRef == req.LoserRef {
		return echo.NewHTTPError(http.StatusBadRequest, "winner_ref and loser_ref must differ")
	}

	sessionID := sessionFromContext(c)
	if err := s.Store.RecordVote(c.Request().Context(), sessionID, req.WinnerRef, req.LoserRef); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStandings(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be 1-200")
		}
		limit = parsed
	}

	standings, err := s.Store.Standings(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"standings": standings})
}
