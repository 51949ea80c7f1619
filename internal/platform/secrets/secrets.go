package secrets

import (
	"github.com/kelseyhightower/envconfig"
)

// Secrets holds everything that must not live in config.yaml.
type Secrets struct {
	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`
	// Mail (Resend). Empty key falls back to the console notifier.
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"Bookio <onboarding@resend.dev>"`
	// Payment links (AbacatePay). Empty key disables billing creation.
	AbacatePayAPIKey string `envconfig:"ABACATEPAY_API_KEY"`
	// Object storage for book covers and reader pictures.
	S3Bucket        string `envconfig:"BOOKIO_S3_BUCKET"`
	S3Region        string `envconfig:"BOOKIO_S3_REGION" default:"us-east-1"`
	S3Endpoint      string `envconfig:"BOOKIO_S3_ENDPOINT"`
	S3PathStyle     bool   `envconfig:"BOOKIO_S3_PATH_STYLE" default:"false"`
	S3PublicBaseURL string `envconfig:"BOOKIO_S3_PUBLIC_BASE_URL"`
}

func Load() (Secrets, error) {
	var s Secrets
	err := envconfig.Process("", &s)
	return s, err
}
