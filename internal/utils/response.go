package utils

import "github.com/gofiber/fiber/v2"

const (
	defaultSuccessMessage = "success"
	defaultErrorMessage   = "error"
)

// Envelope is the JSON body shared by every API response. Error envelopes
// never carry data, and carry the request correlation id when one is bound.
type Envelope struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	Data          interface{} `json:"data,omitempty"`
	Meta          interface{} `json:"meta,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers with data and an explicit status, such as 201.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: orDefault(message, defaultSuccessMessage),
		Data:    data,
	})
}

// OK answers 200 with data plus list metadata such as pagination.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Success: true,
		Message: orDefault(message, defaultSuccessMessage),
		Data:    data,
		Meta:    meta,
	})
}

// SendError answers with an error envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail answers with an error envelope. details typically maps invalid
// fields to the violated rule.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	correlationID, _ := c.Locals("correlation_id").(string)
	return c.Status(status).JSON(Envelope{
		Message:       orDefault(message, defaultErrorMessage),
		Details:       details,
		CorrelationID: correlationID,
	})
}
