package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/odontobb/odontobb/internal/pkg/payments"
)

// HandlePaymentOrder creates a purchase and redirects the caller to the
// hosted payment page. Accepts JSON, form or query string parameters so the
// booking form and the mobile shell can both use it.
func HandlePaymentOrder(c *fiber.Ctx) error {
	var req payments.OrderRequest
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "cuerpo de solicitud inválido",
			})
		}
	}
	if req.ProductID == "" && req.Amount == 0 {
		if err := c.QueryParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "parámetros inválidos",
			})
		}
	}

	payURL, err := paymentService.InitiateOrder(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "validation_error",
				"message": "userId/childId, productId y un monto positivo son obligatorios",
			})
		case errors.Is(err, payments.ErrGatewayUnavailable):
			log.Errorf("payment order failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "gateway_unavailable",
				"message": "no se pudo iniciar el pago, intente nuevamente",
			})
		default:
			log.Errorf("payment order failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "error interno",
			})
		}
	}

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "url": payURL})
	}
	return c.Redirect(payURL, fiber.StatusFound)
}

// HandlePaymentStatus reports the stored state of a purchase so the app can
// poll after the hosted payment page redirects back.
func HandlePaymentStatus(c *fiber.Ctx) error {
	st, err := paymentService.OrderStatus(c.Context(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, payments.ErrPurchaseNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "purchase_not_found",
				"message": "no existe una compra con esa referencia",
			})
		}
		log.Errorf("payment status lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "error interno",
		})
	}

	resp := fiber.Map{
		"success":   true,
		"reference": st.Reference,
		"status":    st.Status,
		"credited":  st.Credited,
	}
	if st.HasLedger {
		resp["balance"] = st.Balance
	}
	return c.JSON(resp)
}

// HandlePaymentWebhook receives the asynchronous gateway callback. Non-POST
// deliveries are refused so the gateway sees a definitive 405 instead of a
// silent success.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"error":   "method_not_allowed",
			"message": "only POST is accepted",
		})
	}

	res, err := paymentService.HandleNotification(c.Context(), c.Get(fiber.HeaderContentType), c.Body())
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrMissingCorrelationKey):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "missing_correlation_key",
				"message": "no clientTransactionId in payload",
			})
		case errors.Is(err, payments.ErrPurchaseNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "purchase_not_found",
				"message": "no purchase matches the correlation key",
			})
		case errors.Is(err, payments.ErrIncompleteLedgerTarget):
			// Status is committed; crediting needs manual reconciliation.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "incomplete_ledger_target",
				"message": "purchase has no beneficiary or amount",
			})
		case errors.Is(err, payments.ErrLedgerTargetNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "ledger_target_not_found",
				"message": "no ledger entry for beneficiary",
			})
		default:
			log.Errorf("payment webhook failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "reconciliation failed",
			})
		}
	}

	// Browser redirects from the gateway land here too; give them the shell
	// page that bounces into the app scheme.
	if wantsHTML(c) {
		return c.Render("payment_success", fiber.Map{
			"Reference": res.Reference,
		})
	}
	return c.JSON(fiber.Map{"success": true, "status": res.Status, "credited": res.Credited})
}

// HandlePaymentCancel is the gateway's cancel redirect target. Stateless: it
// only renders the acknowledgment page, stores are never touched.
func HandlePaymentCancel(c *fiber.Ctx) error {
	if wantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "canceled": true})
	}
	return c.Render("payment_cancel", fiber.Map{})
}
