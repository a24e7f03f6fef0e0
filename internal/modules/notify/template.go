package notify

import (
	"fmt"

	"astrovani.com/app/internal/modules/orders"
)

// details is everything the confirmation email needs, assembled from the
// order_meta row or, failing that, parsed back out of the order note.
type details struct {
	OrderID        string
	ServiceType    string
	CustomerName   string
	Amount         string
	DateOfBirth    string
	WhatsappNumber string
	Reason         string
}

func detailsFromMeta(m orders.Meta) details {
	return details{
		OrderID:        m.OrderID,
		ServiceType:    m.ServiceType,
		CustomerName:   m.CustomerName,
		Amount:         m.Amount.StringFixed(2),
		DateOfBirth:    m.DateOfBirth,
		WhatsappNumber: m.WhatsappNumber,
		Reason:         m.Reason,
	}
}

func detailsFromNote(orderID, customerName, note string, amount float64) details {
	p := orders.ParseOrderNote(note)
	name := customerName
	if name == "" {
		name = "Customer"
	}
	return details{
		OrderID:        orderID,
		ServiceType:    p.ServiceType,
		CustomerName:   name,
		Amount:         fmt.Sprintf("%.2f", amount),
		DateOfBirth:    p.DateOfBirth,
		WhatsappNumber: p.WhatsappNumber,
		Reason:         p.Reason,
	}
}

func confirmationSubject(d details) string {
	return fmt.Sprintf("Order Confirmation - %s (Order #%s)", d.ServiceType, d.OrderID)
}

func confirmationText(d details) string {
	return "Dear " + d.CustomerName + ",\n\n" +
		"Thank you for your order! We have received your payment and your request is being processed.\n\n" +
		"Order ID: " + d.OrderID + "\n" +
		"Service: " + d.ServiceType + "\n" +
		"Amount Paid: Rs. " + d.Amount + "\n" +
		"Date of Birth: " + d.DateOfBirth + "\n" +
		"WhatsApp: " + d.WhatsappNumber + "\n" +
		"Consultation Purpose: " + d.Reason + "\n\n" +
		"Your report will be prepared within 2-3 business days and sent to this email address.\n" +
		"We will contact you on WhatsApp for any clarifications.\n"
}

func confirmationHTML(d details) string {
	row := func(label, value string) string {
		return `<tr><td style="padding: 8px 0; border-bottom: 1px solid #eee;"><strong>` + label + `:</strong></td>` +
			`<td style="padding: 8px 0; border-bottom: 1px solid #eee;">` + value + `</td></tr>`
	}

	return `
<html>
  <body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
    <h2 style="color: #27ae60;">Order Confirmation</h2>
    <p>Dear <strong>` + d.CustomerName + `</strong>,</p>
    <p>Thank you for your order! We have received your payment and your request is being processed.</p>
    <table style="width: 100%; border-collapse: collapse;">
      ` + row("Order ID", d.OrderID) + `
      ` + row("Service", d.ServiceType) + `
      ` + row("Amount Paid", "&#8377;"+d.Amount) + `
      ` + row("Date of Birth", d.DateOfBirth) + `
      ` + row("WhatsApp", d.WhatsappNumber) + `
      ` + row("Consultation Purpose", d.Reason) + `
    </table>
    <h4 style="color: #27ae60;">What happens next?</h4>
    <ul>
      <li>Your report will be prepared within 2-3 business days</li>
      <li>We will contact you on your WhatsApp number for any clarifications</li>
      <li>The completed report will be sent to this email address</li>
    </ul>
    <p style="color: #7f8c8d; font-size: 12px;">This is an automated confirmation email. Please do not reply.</p>
  </body>
</html>
`
}
