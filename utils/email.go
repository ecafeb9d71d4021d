// utils/email.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"installmart/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService handles sending emails using SendGrid
type EmailService struct {
	client *sendgrid.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance.
// Without a SENDGRID_API_KEY all sends fail with an error, which callers
// log and otherwise ignore.
func NewEmailService() *EmailService {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Println("SENDGRID_API_KEY is not set; outgoing email is disabled")
		return &EmailService{sender: os.Getenv("EMAIL_SENDER")}
	}
	return &EmailService{
		client: sendgrid.NewSendClient(apiKey),
		sender: os.Getenv("EMAIL_SENDER"),
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	if es.client == nil {
		return fmt.Errorf("email disabled: SENDGRID_API_KEY not set")
	}

	from := mail.NewEmail("InstallMart", es.sender)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, htmlContent, htmlContent)

	resp, err := es.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// SendOrderConfirmation sends an itemized order confirmation to the buyer
func (es *EmailService) SendOrderConfirmation(toEmail string, order models.Order) error {
	subject := "Order Confirmation - InstallMart"

	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, "<li>%s x%d - Rs %.2f</li>", item.Name, item.Quantity, item.Price*float64(item.Quantity))
	}

	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Thank you for your purchase! Your order (ID: %s) has been placed successfully.<br><br><ul>%s</ul>Total: <strong>Rs %.2f</strong> in %d monthly installments of <strong>Rs %.2f</strong>.<br>First installment due: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.ID.Hex(),
		items.String(),
		order.Total,
		order.InstallmentMonths,
		order.MonthlyPayment,
		order.Installments[0].DueDate.Format("2006-01-02"),
	)

	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendPaymentConfirmation confirms a single installment payment
func (es *EmailService) SendPaymentConfirmation(toEmail string, order models.Order, inst models.Installment) error {
	subject := "Payment Received - InstallMart"
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>We have received your payment of <strong>Rs %.2f</strong> for installment %d of order %s (transaction %s).<br><br>Thank you for shopping with us!",
		inst.Amount,
		inst.Seq,
		order.ID.Hex(),
		inst.TransactionID,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendInstallmentReminder reminds the buyer of an upcoming due date
func (es *EmailService) SendInstallmentReminder(toEmail string, order models.Order, inst models.Installment) error {
	subject := "Installment Due Soon - InstallMart"
	htmlContent := fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Installment %d of order %s (<strong>Rs %.2f</strong>) is due on <strong>%s</strong>. Please pay on time to avoid your installment becoming overdue.",
		inst.Seq,
		order.ID.Hex(),
		inst.Amount,
		inst.DueDate.Format("2006-01-02"),
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}

// SendDailySummary mails the daily numbers to the admin
func (es *EmailService) SendDailySummary(toEmail string, day time.Time, newOrders, overdue int64, dueToday float64) error {
	subject := fmt.Sprintf("Daily Summary %s - InstallMart", day.Format("2006-01-02"))
	htmlContent := fmt.Sprintf(
		"New orders today: <strong>%d</strong><br>Total overdue installments: <strong>%d</strong><br>Amount due today: <strong>Rs %.2f</strong>",
		newOrders,
		overdue,
		dueToday,
	)
	return es.SendEmail(toEmail, subject, htmlContent)
}
