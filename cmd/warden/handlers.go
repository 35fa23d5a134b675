package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hackforge/sentinel/detect"
	"github.com/hackforge/sentinel/engine"
	"github.com/hackforge/sentinel/trust"

	"github.com/labstack/echo/v4"
)

type reasonBody struct {
	Reason string `json:"reason"`
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// httpErr maps engine sentinel errors onto API status codes.
func httpErr(err error) error {
	switch {
	case errors.Is(err, engine.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrEmptyReason):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (srv *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (srv *Server) handleScoreSubject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	res, err := srv.engine.ScoreSubject(c.Request().Context(), id)
	if err != nil {
		return httpErr(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (srv *Server) handleScoreOrganizer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	res, err := srv.engine.ScoreOrganizer(c.Request().Context(), id)
	if err != nil {
		return httpErr(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (srv *Server) handleGetScore(kind trust.ScoreKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		snap, err := srv.store.GetScore(c.Request().Context(), id, kind)
		if err != nil {
			return err
		}
		if snap == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no score snapshot")
		}
		return c.JSON(http.StatusOK, snap)
	}
}

func (srv *Server) handleFlag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body reasonBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	state, err := srv.engine.Flag(c.Request().Context(), id, body.Reason, adminActor(c))
	if err != nil {
		return httpErr(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (srv *Server) handleUnflag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body reasonBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := srv.engine.Unflag(c.Request().Context(), id, body.Reason, adminActor(c)); err != nil {
		return httpErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) handleRevoke(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body reasonBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := srv.engine.Revoke(c.Request().Context(), id, body.Reason, adminActor(c))
	if err != nil {
		return httpErr(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (srv *Server) handleDetectPatterns(c echo.Context) error {
	var actorID *uint64
	if raw := c.QueryParam("actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		actorID = &id
	}

	if raw := c.QueryParam("pattern"); raw != "" {
		res, err := srv.engine.DetectPattern(c.Request().Context(), detect.Pattern(raw), actorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, res)
	}

	triggered, err := srv.engine.DetectAllPatterns(c.Request().Context(), actorID)
	if err != nil {
		return err
	}
	if triggered == nil {
		triggered = []*detect.PatternResult{}
	}
	return c.JSON(http.StatusOK, triggered)
}

func (srv *Server) handleDetectSpike(c echo.Context) error {
	res, err := srv.engine.DetectSpike(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (srv *Server) handleListEvents(c echo.Context) error {
	q := engine.EventQuery{
		TargetType: c.QueryParam("target_type"),
		Severity:   c.QueryParam("severity"),
		Cursor:     c.QueryParam("cursor"),
	}
	if raw := c.QueryParam("type"); raw != "" {
		q.Types = []string{raw}
	}
	if raw := c.QueryParam("target_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid target_id")
		}
		q.TargetID = id
	}
	if raw := c.QueryParam("actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		q.ActorID = &id
	}
	if raw := c.QueryParam("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since timestamp")
		}
		q.Since = ts
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		q.Limit = n
	}

	page, err := srv.store.QueryEvents(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, page)
}
