package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/jhoicas/myinvois-signer/pkg/myinvois"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	MyInvois MyInvoisConfig
	Signing  SigningConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// MyInvoisConfig datos del contribuyente y endpoints de la API MyInvois (LHDN).
type MyInvoisConfig struct {
	Environment    string // sandbox | production
	AuthURL        string
	TransactionURL string
	TIN            string // TIN del dueño del sistema
}

// SubmissionURL devuelve el endpoint de envío de documentos.
func (c MyInvoisConfig) SubmissionURL() string {
	return myinvois.SubmissionURL(c.TransactionURL)
}

// SigningConfig rutas del material de firma.
type SigningConfig struct {
	CertPath      string // PEM con la cadena completa (firmante primero)
	KeyPath       string // Llave privada PEM cifrada
	KeyPassphrase string
	P12Path       string // Alternativa: .p12/.pfx con la llave (la cadena sigue saliendo de CertPath si existe)
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, MYINVOIS_ENVIRONMENT, SIGNING_CERT_PATH, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "myinvois-signer"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "myinvois"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "myinvois-signer"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		MyInvois: MyInvoisConfig{
			Environment:    strings.ToLower(strings.TrimSpace(getString(v, "MYINVOIS_ENVIRONMENT", myinvois.EnvironmentSandbox))),
			AuthURL:        getString(v, "MYINVOIS_AUTH_URL", ""),
			TransactionURL: getString(v, "MYINVOIS_TRANSACTION_URL", ""),
			TIN:            getString(v, "MYINVOIS_TIN", ""),
		},
		Signing: SigningConfig{
			CertPath:      getString(v, "SIGNING_CERT_PATH", ""),
			KeyPath:       getString(v, "SIGNING_KEY_PATH", ""),
			KeyPassphrase: getString(v, "SIGNING_KEY_PASSPHRASE", ""),
			P12Path:       getString(v, "SIGNING_P12_PATH", ""),
		},
	}

	urls, err := myinvois.URLsFor(cfg.MyInvois.Environment)
	if err != nil {
		return nil, fmt.Errorf("config: MYINVOIS_ENVIRONMENT: %w", err)
	}
	if cfg.MyInvois.AuthURL == "" {
		cfg.MyInvois.AuthURL = urls.Auth
	}
	if cfg.MyInvois.TransactionURL == "" {
		cfg.MyInvois.TransactionURL = urls.Transaction
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
