package utils

import (
	"fmt"
	"strings"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"gopkg.in/gomail.v2"
)

// sendEmail delivers one HTML email through the configured SMTP server.
// Email delivery is best-effort everywhere: callers log failures and move on,
// an undeliverable email never rolls back an order.
func sendEmail(to, subject, body string) error {
	cfg := config.App
	if cfg == nil || cfg.SMTPHost == "" {
		return fmt.Errorf("smtp is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

func orderLinesTable(order *models.Order) string {
	var b strings.Builder
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0">`)
	b.WriteString(`<tr><th>Product</th><th>Qty</th><th>Unit Price</th><th>Sub Total</th></tr>`)
	for _, line := range order.OrderLines {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d IQD</td><td>%d IQD</td></tr>",
			line.Product.Name, line.Quantity, line.UnitPrice, line.SubTotal())
	}
	b.WriteString("</table>")
	return b.String()
}

// SendOrderPendingEmail notifies the buyer that the order was created.
func SendOrderPendingEmail(order *models.Order) error {
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your order <strong>%s</strong> has been created and is awaiting payment and review.</p>
		%s
		<p>Total: <strong>%d IQD</strong></p>
	`, order.User.Username, order.OrderNumber, orderLinesTable(order), order.TotalPrice)

	return sendEmail(order.User.Email, fmt.Sprintf("Order %s Created", order.OrderNumber), body)
}

// SendOrderApprovedEmail notifies the buyer that the order was approved.
func SendOrderApprovedEmail(order *models.Order) error {
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your order <strong>%s</strong> has been approved. Thanks for purchasing!</p>
		%s
		<p>Total: <strong>%d IQD</strong></p>
	`, order.User.Username, order.OrderNumber, orderLinesTable(order), order.TotalPrice)

	return sendEmail(order.User.Email, fmt.Sprintf("Order %s is Approved, Thanks for Purchasing", order.OrderNumber), body)
}

// SendOrderRejectedEmail notifies the buyer that the order was rejected.
func SendOrderRejectedEmail(order *models.Order) error {
	body := fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Unfortunately your order <strong>%s</strong> has been rejected.</p>
		<p>If you believe this is a mistake, please contact support.</p>
	`, order.User.Username, order.OrderNumber)

	return sendEmail(order.User.Email, fmt.Sprintf("Order %s Rejected", order.OrderNumber), body)
}

// SendOrderReturnedEmail notifies the buyer that the order was returned.
func SendOrderReturnedEmail(order *models.Order) error {
	body := fmt.Sprintf(`
		<p>Your order <strong>%s</strong> has been returned.</p>
	`, order.OrderNumber)

	return sendEmail(order.User.Email, fmt.Sprintf("Order %s Returned", order.OrderNumber), body)
}
