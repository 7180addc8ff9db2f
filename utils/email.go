// utils/email.go
package utils

import (
	"fmt"

	"go-storefront/models"
	"go-storefront/pricing"

	"github.com/keighl/postmark"
)

// EmailService handles sending emails using Postmark. A nil *EmailService
// is a no-op, so the server runs without an API token in development.
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance.
// Returns nil when no API token is configured.
func NewEmailService(apiToken, sender string) *EmailService {
	if apiToken == "" {
		return nil
	}
	return &EmailService{
		client: postmark.NewClient(apiToken, ""),
		sender: sender,
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	if es == nil {
		return nil
	}
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmationEmail sends an order confirmation email to the user
func (es *EmailService) SendOrderConfirmationEmail(toEmail string, order models.Order) error {
	subject := "Order Confirmation"
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Thank you for your purchase! Your order <strong>%s</strong> has been placed successfully and should arrive by <strong>%s</strong>.<br><br>Total Amount: <strong>%s</strong><br>Payment Method: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.OrderNumber,
		order.EstimatedDelivery.Format("2006-01-02"),
		pricing.FormatAmount(order.Total),
		order.PaymentMethod,
	)

	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendOrderCancellationEmail notifies the user that their order was
// cancelled and the stock returned.
func (es *EmailService) SendOrderCancellationEmail(toEmail string, order models.Order) error {
	subject := "Order Cancelled"
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Your order <strong>%s</strong> has been cancelled.<br>Reason: %s<br><br>If you did not request this, please contact support.",
		order.OrderNumber,
		order.CancelReason,
	)

	return es.SendEmail(toEmail, subject, htmlContent)
}
