// Package email sends transactional account emails.
//
// EmailSender is implemented by a Postmark client for production and by
// DevSender, which writes each message to disk as HTML plus JSON metadata.
// New picks one based on Config.Driver.
//
// Message bodies are rendered from embedded html/template files:
//
//	params, err := email.PasswordReset(user.Email, link)
//	if err != nil {
//		return err
//	}
//	return sender.SendEmail(ctx, params)
//
// Every sender validates SendEmailParams before delivery; validation
// failures wrap ErrInvalidParams and delivery failures wrap ErrFailedToSendEmail.
package email
