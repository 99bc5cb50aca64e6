package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
	"time"
)

var (
	emailFrom     = os.Getenv("EMAIL_FROM")
	emailPassword = os.Getenv("EMAIL_PASSWORD")
	smtpHost      = os.Getenv("SMTP_HOST")
	smtpPort      = os.Getenv("SMTP_PORT")
	companyName   = "Xzity Dispatch"
)

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #1E88E5; margin: 0;">Xzity</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
			<p>© 2025 Xzity Dispatch. All rights reserved.</p>
		</div>
	</div>
</body>
</html>
`

func sendEmail(to []string, subject, body string) error {
	if emailFrom == "" || emailPassword == "" || smtpHost == "" || smtpPort == "" {
		return fmt.Errorf("email configuration not set")
	}

	// Headers
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", companyName, emailFrom)
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"
	headers["X-Mailer"] = "Xzity-Mailer"

	// Build message
	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + body

	// Authentication
	auth := smtp.PlainAuth("", emailFrom, emailPassword, smtpHost)

	// Send email
	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, emailFrom, to, []byte(message))
	if err != nil {
		log.Printf("Failed to send email: %v", err)
		return err
	}

	return nil
}

// SendScheduledRideConfirmation confirms a scheduled booking to the customer.
// Failures are the caller's to swallow; scheduling never depends on email.
func SendScheduledRideConfirmation(email, destName string, scheduledAt time.Time) error {
	body := emailHeader + fmt.Sprintf(`
		<h3>Your booking is confirmed</h3>
		<p>Your ride to <strong>%s</strong> is scheduled for <strong>%s</strong> (UTC).</p>
		<p>A driver will be able to pick the job up 30 minutes before the scheduled time.</p>
	`, destName, scheduledAt.Format("Mon, 02 Jan 2006 15:04")) + emailFooter

	return sendEmail([]string{email}, "Booking confirmed", body)
}

// SendRideCompletedReceipt mails the customer a completion receipt.
func SendRideCompletedReceipt(email, driverName string, completedAt time.Time) error {
	body := emailHeader + fmt.Sprintf(`
		<h3>Trip complete</h3>
		<p>Your trip with <strong>%s</strong> finished at <strong>%s</strong> (UTC).</p>
		<p>You can rate the trip from the app while it is fresh.</p>
	`, driverName, completedAt.Format("Mon, 02 Jan 2006 15:04")) + emailFooter

	return sendEmail([]string{email}, "Your trip receipt", body)
}
