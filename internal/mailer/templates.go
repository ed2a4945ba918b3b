package mailer

import (
	"fmt"
	"strings"
)

// Inquiry carries the fields rendered into the distributor notification email.
type Inquiry struct {
	CustomerName  string
	CustomerEmail string
	Message       string
	Country       string
	City          string
	CountryCode   string
}

// NewInquiryTextBody returns the plain-text body sent to a distributor when a
// customer inquiry is routed to them.
func NewInquiryTextBody(inq Inquiry) string {
	return fmt.Sprintf(`New Customer Inquiry

Customer Information:
- Name: %s
- Email: %s
- Location: %s, %s
- Country Code: %s

Message:
%s

---
IMPORTANT:
- Please reply to this email to respond to the customer
- Your response will be sent to: %s
- All conversation will be visible in the support dashboard

This is an automated message from the contact form integration.
`, inq.CustomerName, inq.CustomerEmail, inq.City, inq.Country, orNA(inq.CountryCode), inq.Message, inq.CustomerEmail)
}

// NewInquiryHTMLBody returns the HTML version of the distributor notification.
func NewInquiryHTMLBody(inq Inquiry) string {
	htmlMessage := strings.ReplaceAll(inq.Message, "\n", "<br>")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #0066cc; color: white; padding: 15px; border-radius: 5px 5px 0 0; }
    .content { background: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
    .message-box { background: white; padding: 15px; margin: 15px 0; border-left: 4px solid #0066cc; }
    .info-table { width: 100%%; margin: 15px 0; }
    .info-table td { padding: 8px; border-bottom: 1px solid #eee; }
    .info-table td:first-child { font-weight: bold; width: 30%%; }
    .important { background: #fff3cd; border: 1px solid #ffc107; padding: 15px; margin: 15px 0; border-radius: 5px; }
    .footer { background: #f0f0f0; padding: 15px; text-align: center; font-size: 12px; color: #666; border-radius: 0 0 5px 5px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h2 style="margin: 0;">New Customer Inquiry</h2>
    </div>
    <div class="content">
      <h3>Customer Information</h3>
      <table class="info-table">
        <tr><td>Name:</td><td>%s</td></tr>
        <tr><td>Email:</td><td><a href="mailto:%s">%s</a></td></tr>
        <tr><td>Location:</td><td>%s, %s</td></tr>
        <tr><td>Country Code:</td><td>%s</td></tr>
      </table>
      <h3>Customer Message</h3>
      <div class="message-box">%s</div>
      <div class="important">
        <strong>IMPORTANT:</strong>
        <ul style="margin: 10px 0;">
          <li>Please <strong>reply to this email</strong> to respond to the customer</li>
          <li>Your response will be sent to: <strong>%s</strong></li>
          <li>All conversation will be visible in the support dashboard</li>
        </ul>
      </div>
    </div>
    <div class="footer">
      This is an automated message from the contact form integration.
    </div>
  </div>
</body>
</html>`, inq.CustomerName, inq.CustomerEmail, inq.CustomerEmail, inq.City, inq.Country,
		orNA(inq.CountryCode), htmlMessage, inq.CustomerEmail)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
