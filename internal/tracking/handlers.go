package tracking

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	UserID      string `json:"user_id"`
	WorkoutType string `json:"workout_type"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type routePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" {
			if uid, ok := c.Locals("user_id").(string); ok {
				req.UserID = uid
			}
		}
		if req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		if req.WorkoutType == "" {
			req.WorkoutType = "running"
		}
		snap, err := svc.StartSession(c.Context(), req.UserID, req.WorkoutType)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	r.Post("/sessions/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		fixes, err := parseFixes(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.AddFixes(c.Context(), c.Params("id"), fixes); err != nil {
			return serviceError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": len(fixes)})
	})

	r.Post("/sessions/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Pause(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/sessions/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Resume(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/sessions/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		w, err := svc.Stop(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(fiber.Map{
			"id":               w.ID,
			"workout_type":     w.WorkoutType,
			"start_time":       w.StartTime,
			"end_time":         w.EndTime,
			"distance_km":      w.DistanceKm,
			"duration_seconds": w.DurationSeconds,
			"point_count":      len(w.Points),
		})
	})

	r.Post("/sessions/:id/status", authMiddleware, func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.ReportStatus(c.Context(), c.Params("id"), req.Status); err != nil {
			return serviceError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/memory-pressure", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sessions": svc.TrimMemory(c.Context())})
	})

	r.Get("/sessions/:id", func(c *fiber.Ctx) error {
		snap, err := svc.Snapshot(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(snap)
	})

	r.Get("/sessions/:id/route", func(c *fiber.Ctx) error {
		route, err := svc.Route(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(err)
		}
		points := make([]routePoint, len(route))
		for i, p := range route {
			points[i] = routePoint{Lat: p.Lat(), Lng: p.Lon()}
		}
		return c.JSON(points)
	})
}

// parseFixes accepts either a single fix object or an array of them.
func parseFixes(body []byte) ([]RawFix, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("fix body required")
	}
	if body[0] == '[' {
		var fixes []RawFix
		if err := json.Unmarshal(body, &fixes); err != nil {
			return nil, err
		}
		return fixes, nil
	}
	var fix RawFix
	if err := json.Unmarshal(body, &fix); err != nil {
		return nil, err
	}
	return []RawFix{fix}, nil
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoSession):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
