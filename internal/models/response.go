package models

import "github.com/gofiber/fiber/v2"

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Status int          `json:"status"`
	Data   EnvelopeData `json:"data"`
}

// EnvelopeData carries the payload and pagination metadata.
type EnvelopeData struct {
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Total   *int64      `json:"total,omitempty"`
}

// Page is a slice of results with the unpaginated total.
type Page[T any] struct {
	Items []T
	Total int64
}

// Status is 200 for a non-empty page and 204 otherwise.
func (p Page[T]) Status() int {
	if len(p.Items) == 0 {
		return fiber.StatusNoContent
	}
	return fiber.StatusOK
}

// Respond writes result inside an envelope. 204 responses have no body.
func Respond(c *fiber.Ctx, status int, result interface{}, message string) error {
	if status == fiber.StatusNoContent {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(Envelope{
		Status: status,
		Data:   EnvelopeData{Result: result, Message: message},
	})
}

// RespondPage writes a page with count and total.
func RespondPage[T any](c *fiber.Ctx, page Page[T]) error {
	status := page.Status()
	if status == fiber.StatusNoContent {
		return c.SendStatus(status)
	}
	count := len(page.Items)
	total := page.Total
	return c.Status(status).JSON(Envelope{
		Status: status,
		Data: EnvelopeData{
			Result: page.Items,
			Count:  &count,
			Total:  &total,
		},
	})
}
