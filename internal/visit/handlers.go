package visit

import (
	"errors"

	"github.com/etsibreadud/qbloco-app/internal/tracking"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/checkin", authMiddleware, func(c *fiber.Ctx) error {
		var req CheckInRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		v, err := svc.CheckIn(c.UserContext(), userID(c), req.BlockID)
		var trackerErr *tracking.Error
		switch {
		case err == nil:
			return c.Status(fiber.StatusCreated).JSON(CheckInResponse{Visit: v})
		case errors.As(err, &trackerErr):
			return c.Status(fiber.StatusCreated).JSON(CheckInResponse{Visit: v, TrackerError: trackerErr.Message})
		case errors.Is(err, ErrMissingFields):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrVisitActive):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ErrNoStorage):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	})

	r.Post("/checkout", authMiddleware, func(c *fiber.Ctx) error {
		v, err := svc.CheckOut(c.UserContext(), userID(c))
		switch {
		case err == nil:
			return c.JSON(v)
		case errors.Is(err, ErrNoActiveVisit):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ErrVisitNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		default:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	})

	r.Get("/active", authMiddleware, func(c *fiber.Ctx) error {
		v, ok := svc.Active()
		if !ok || v.UserID != userID(c) {
			return fiber.NewError(fiber.StatusNotFound, ErrNoActiveVisit.Error())
		}
		return c.JSON(v)
	})

	r.Get("/stats", authMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.UserContext(), userID(c))
		if errors.Is(err, ErrNoStorage) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(stats)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
