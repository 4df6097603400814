package email

// Config holds email settings. Postmark tokens are only required when
// Driver is "postmark".
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"dev"` // postmark or dev
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
