package workout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, store Store) {
	r.Get("/:id", func(c *fiber.Ctx) error {
		w, err := store.Workout(c.Context(), c.Params("id"))
		if err != nil {
			return storeError(err)
		}
		return c.JSON(w)
	})

	r.Get("/:id/points", func(c *fiber.Ctx) error {
		points, err := store.Points(c.Context(), c.Params("id"))
		if err != nil {
			return storeError(err)
		}
		return c.JSON(points)
	})
}

func storeError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
