package tracking

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the tracker controls and read model. Start replies
// 200 even when the tracker lands in the error state; the failure is part of
// the returned snapshot, not a transport error. The controls sit behind
// authMiddleware; reads do not.
func RegisterRoutes(r fiber.Router, tracker *Tracker, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(tracker.Snapshot())
	})

	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		_ = tracker.Start(c.UserContext())
		return c.JSON(tracker.Snapshot())
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		tracker.Stop()
		return c.JSON(tracker.Snapshot())
	})

	r.Post("/reset", authMiddleware, func(c *fiber.Ctx) error {
		tracker.Reset()
		return c.JSON(tracker.Snapshot())
	})

	r.Get("/path", func(c *fiber.Ctx) error {
		body, err := tracker.Path().MarshalJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	})
}
