package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Swagger      SwaggerConfig
	Telemetry    TelemetryConfig
	Metrics      MetricsConfig
	Storage      StorageConfig
	Session      SessionConfig
	Delivery     DeliveryConfig
	Pricing      PricingConfig
	Shipping     ShippingConfig
	Notification NotificationConfig
	Scheduler    SchedulerConfig
	Twilio       TwilioConfig
	Resend       ResendConfig
	DocuSign     DocuSignConfig
	Google       GoogleConfig
	Rentcast     RentcastConfig
	Printing     PrintingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	MaxSizeMB  int    // rotation threshold for file output
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name      string
	Env       string
	Port      string
	PublicURL string // storefront base URL used in notification links
	// Dealership is the display name on estimates and messages
	Dealership string
	Timezone   string // IANA zone for times in customer messages
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	MaxHeaderBytes          int
	MaxBodySize             int64
	RateLimitEnabled        bool
	RateLimitRPS            float64
	RateLimitBurst          int
	FunctionsRateLimitRPS   float64
	FunctionsRateLimitBurst int
	CORSAllowOrigins        []string
	CORSAllowMethods        []string
	CORSAllowHeaders        []string
	TrustedProxies          []string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // admin token required
	AllowedIPs  []string // IPs or CIDRs; empty allows all
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	LogExportEnabled  bool
	ProfilingEnabled  bool
	PyroscopeURL      string
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// SessionConfig controls the single-client session manager
type SessionConfig struct {
	Debounce      time.Duration // write coalescing window
	MaxAge        time.Duration // envelopes older than this are wiped on load
	SweepInterval time.Duration
	SyncChannel   string
}

// DeliveryConfig holds GPS automation thresholds
type DeliveryConfig struct {
	DepartureRadiusMiles float64
	ArrivalRadiusMiles   float64
	AverageSpeedMPH      float64
	StaleAfter           time.Duration
}

// PricingConfig holds markup defaults
type PricingConfig struct {
	DefaultMarkupPercent decimal.Decimal
}

// ShippingConfig holds delivery-fee rates
type ShippingConfig struct {
	BaseFee              decimal.Decimal
	SingleRatePerMile    decimal.Decimal
	DoubleRatePerMile    decimal.Decimal
	TripleRatePerMile    decimal.Decimal
	RoadFactor           float64
	EscortThresholdMiles float64
	EscortFee            decimal.Decimal
}

// NotificationConfig controls dispatch behaviour
type NotificationConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	DedupeTTL      time.Duration
	Currency       string
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled           bool
	Workers           int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	SessionSweepSpec  string
	ReminderSpec      string
	PermitExpirySpec  string
	StaleDeliverySpec string
	ReminderLead      time.Duration
}

// TwilioConfig holds SMS provider credentials
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

// ResendConfig holds email provider credentials
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
}

// DocuSignConfig holds e-signature credentials
type DocuSignConfig struct {
	IntegrationKey string
	UserID         string
	AccountID      string
	PrivateKeyPEM  string
	AuthBaseURL    string
	APIBaseURL     string
	ConnectSecret  string
	TemplateID     string // default purchase agreement template
}

// GoogleConfig holds Google OAuth, Calendar and Geocoding settings
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	TokenURL        string
	AuthURL         string
	CalendarBaseURL string
	GeocodingAPIKey string
	GeocodingURL    string
}

// RentcastConfig holds comps provider settings
type RentcastConfig struct {
	APIKey  string
	BaseURL string
}

// PrintingConfig controls headless Chrome PDF rendering
type PrintingConfig struct {
	Enabled   bool
	ChromeURL string // remote debugging URL; empty launches a local browser
	Timeout   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with HOMESTEAD_ prefix (e.g., HOMESTEAD_DATABASE_PASSWORD)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HOMESTEAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:       v.GetString("app.name"),
			Env:        v.GetString("app.env"),
			Port:       v.GetString("app.port"),
			PublicURL:  v.GetString("app.public_url"),
			Dealership: v.GetString("app.dealership"),
			Timezone:   v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
			Compress:   v.GetBool("log.compress"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:             v.GetDuration("http.read_timeout"),
			WriteTimeout:            v.GetDuration("http.write_timeout"),
			IdleTimeout:             v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:          v.GetInt("http.max_header_bytes"),
			MaxBodySize:             v.GetInt64("http.max_body_size"),
			RateLimitEnabled:        v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:            v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:          v.GetInt("http.rate_limit_burst"),
			FunctionsRateLimitRPS:   v.GetFloat64("http.functions_rate_limit_rps"),
			FunctionsRateLimitBurst: v.GetInt("http.functions_rate_limit_burst"),
			CORSAllowOrigins:        v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:        v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:        v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:          v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Session: SessionConfig{
			Debounce:      v.GetDuration("session.debounce"),
			MaxAge:        v.GetDuration("session.max_age"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
			SyncChannel:   v.GetString("session.sync_channel"),
		},
		Delivery: DeliveryConfig{
			DepartureRadiusMiles: v.GetFloat64("delivery.departure_radius_miles"),
			ArrivalRadiusMiles:   v.GetFloat64("delivery.arrival_radius_miles"),
			AverageSpeedMPH:      v.GetFloat64("delivery.average_speed_mph"),
			StaleAfter:           v.GetDuration("delivery.stale_after"),
		},
		Pricing: PricingConfig{
			DefaultMarkupPercent: decimalOf(v, "pricing.default_markup_percent"),
		},
		Shipping: ShippingConfig{
			BaseFee:              decimalOf(v, "shipping.base_fee"),
			SingleRatePerMile:    decimalOf(v, "shipping.single_rate_per_mile"),
			DoubleRatePerMile:    decimalOf(v, "shipping.double_rate_per_mile"),
			TripleRatePerMile:    decimalOf(v, "shipping.triple_rate_per_mile"),
			RoadFactor:           v.GetFloat64("shipping.road_factor"),
			EscortThresholdMiles: v.GetFloat64("shipping.escort_threshold_miles"),
			EscortFee:            decimalOf(v, "shipping.escort_fee"),
		},
		Notification: NotificationConfig{
			MaxAttempts:    v.GetInt("notification.max_attempts"),
			RetryBaseDelay: v.GetDuration("notification.retry_base_delay"),
			DedupeTTL:      v.GetDuration("notification.dedupe_ttl"),
			Currency:       v.GetString("notification.currency"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			Workers:           v.GetInt("scheduler.workers"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
			SessionSweepSpec:  v.GetString("scheduler.session_sweep_spec"),
			ReminderSpec:      v.GetString("scheduler.reminder_spec"),
			PermitExpirySpec:  v.GetString("scheduler.permit_expiry_spec"),
			StaleDeliverySpec: v.GetString("scheduler.stale_delivery_spec"),
			ReminderLead:      v.GetDuration("scheduler.reminder_lead"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio.account_sid"),
			AuthToken:  v.GetString("twilio.auth_token"),
			FromNumber: v.GetString("twilio.from_number"),
			BaseURL:    v.GetString("twilio.base_url"),
		},
		Resend: ResendConfig{
			APIKey:  v.GetString("resend.api_key"),
			From:    v.GetString("resend.from"),
			BaseURL: v.GetString("resend.base_url"),
		},
		DocuSign: DocuSignConfig{
			IntegrationKey: v.GetString("docusign.integration_key"),
			UserID:         v.GetString("docusign.user_id"),
			AccountID:      v.GetString("docusign.account_id"),
			PrivateKeyPEM:  v.GetString("docusign.private_key_pem"),
			AuthBaseURL:    v.GetString("docusign.auth_base_url"),
			APIBaseURL:     v.GetString("docusign.api_base_url"),
			ConnectSecret:  v.GetString("docusign.connect_secret"),
			TemplateID:     v.GetString("docusign.template_id"),
		},
		Google: GoogleConfig{
			ClientID:        v.GetString("google.client_id"),
			ClientSecret:    v.GetString("google.client_secret"),
			RedirectURL:     v.GetString("google.redirect_url"),
			TokenURL:        v.GetString("google.token_url"),
			AuthURL:         v.GetString("google.auth_url"),
			CalendarBaseURL: v.GetString("google.calendar_base_url"),
			GeocodingAPIKey: v.GetString("google.geocoding_api_key"),
			GeocodingURL:    v.GetString("google.geocoding_url"),
		},
		Rentcast: RentcastConfig{
			APIKey:  v.GetString("rentcast.api_key"),
			BaseURL: v.GetString("rentcast.base_url"),
		},
		Printing: PrintingConfig{
			Enabled:   v.GetBool("printing.enabled"),
			ChromeURL: v.GetString("printing.chrome_url"),
			Timeout:   v.GetDuration("printing.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decimalOf reads a decimal value; unparsable values become zero and are defaulted later
func decimalOf(v *viper.Viper, key string) decimal.Decimal {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "homestead-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:3000"
	}
	if cfg.App.Dealership == "" {
		cfg.App.Dealership = "Homestead Homes"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "America/Chicago"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "homestead"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "homestead-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 20
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 40
	}
	if cfg.HTTP.FunctionsRateLimitRPS == 0 {
		cfg.HTTP.FunctionsRateLimitRPS = 2
	}
	if cfg.HTTP.FunctionsRateLimitBurst == 0 {
		cfg.HTTP.FunctionsRateLimitBurst = 10
	}
	// An empty origin list allows no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Client-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "homestead-documents"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Session.Debounce == 0 {
		cfg.Session.Debounce = 250 * time.Millisecond
	}
	if cfg.Session.MaxAge == 0 {
		cfg.Session.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = 5 * time.Minute
	}
	if cfg.Session.SyncChannel == "" {
		cfg.Session.SyncChannel = "session:sync"
	}
	if cfg.Delivery.DepartureRadiusMiles == 0 {
		cfg.Delivery.DepartureRadiusMiles = 0.5
	}
	if cfg.Delivery.ArrivalRadiusMiles == 0 {
		cfg.Delivery.ArrivalRadiusMiles = 2
	}
	if cfg.Delivery.AverageSpeedMPH == 0 {
		cfg.Delivery.AverageSpeedMPH = 45
	}
	if cfg.Delivery.StaleAfter == 0 {
		cfg.Delivery.StaleAfter = 2 * time.Hour
	}
	if cfg.Shipping.BaseFee.IsZero() {
		cfg.Shipping.BaseFee = decimal.NewFromInt(1500)
	}
	if cfg.Shipping.SingleRatePerMile.IsZero() {
		cfg.Shipping.SingleRatePerMile = decimal.NewFromFloat(6.50)
	}
	if cfg.Shipping.DoubleRatePerMile.IsZero() {
		cfg.Shipping.DoubleRatePerMile = decimal.NewFromFloat(11.00)
	}
	if cfg.Shipping.TripleRatePerMile.IsZero() {
		cfg.Shipping.TripleRatePerMile = decimal.NewFromFloat(15.50)
	}
	if cfg.Shipping.RoadFactor == 0 {
		cfg.Shipping.RoadFactor = 1.2
	}
	if cfg.Shipping.EscortThresholdMiles == 0 {
		cfg.Shipping.EscortThresholdMiles = 150
	}
	if cfg.Shipping.EscortFee.IsZero() {
		cfg.Shipping.EscortFee = decimal.NewFromInt(750)
	}
	if cfg.Notification.MaxAttempts == 0 {
		cfg.Notification.MaxAttempts = 3
	}
	if cfg.Notification.RetryBaseDelay == 0 {
		cfg.Notification.RetryBaseDelay = 200 * time.Millisecond
	}
	if cfg.Notification.DedupeTTL == 0 {
		cfg.Notification.DedupeTTL = 7 * 24 * time.Hour
	}
	if cfg.Notification.Currency == "" {
		cfg.Notification.Currency = "USD"
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 30 * time.Second
	}
	if cfg.Scheduler.SessionSweepSpec == "" {
		cfg.Scheduler.SessionSweepSpec = fmt.Sprintf("@every %s", cfg.Session.SweepInterval)
	}
	if cfg.Scheduler.ReminderSpec == "" {
		cfg.Scheduler.ReminderSpec = "@every 15m"
	}
	if cfg.Scheduler.PermitExpirySpec == "" {
		cfg.Scheduler.PermitExpirySpec = "@hourly"
	}
	if cfg.Scheduler.StaleDeliverySpec == "" {
		cfg.Scheduler.StaleDeliverySpec = "@every 10m"
	}
	if cfg.Scheduler.ReminderLead == 0 {
		cfg.Scheduler.ReminderLead = 24 * time.Hour
	}
	if cfg.Twilio.BaseURL == "" {
		cfg.Twilio.BaseURL = "https://api.twilio.com"
	}
	if cfg.Resend.BaseURL == "" {
		cfg.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.DocuSign.AuthBaseURL == "" {
		cfg.DocuSign.AuthBaseURL = "https://account-d.docusign.com"
	}
	if cfg.DocuSign.APIBaseURL == "" {
		cfg.DocuSign.APIBaseURL = "https://demo.docusign.net/restapi"
	}
	if cfg.Google.TokenURL == "" {
		cfg.Google.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Google.AuthURL == "" {
		cfg.Google.AuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if cfg.Google.CalendarBaseURL == "" {
		cfg.Google.CalendarBaseURL = "https://www.googleapis.com/calendar/v3"
	}
	if cfg.Google.GeocodingURL == "" {
		cfg.Google.GeocodingURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if cfg.Rentcast.BaseURL == "" {
		cfg.Rentcast.BaseURL = "https://api.rentcast.io/v1"
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Pricing.DefaultMarkupPercent.IsNegative() || c.Pricing.DefaultMarkupPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("pricing.default_markup_percent must be between 0 and 100")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Delivery.ArrivalRadiusMiles <= 0 || c.Delivery.DepartureRadiusMiles <= 0 {
		return fmt.Errorf("delivery radii must be positive")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled {
			return fmt.Errorf("swagger must be disabled in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if c.DocuSign.IntegrationKey != "" && c.DocuSign.ConnectSecret == "" {
			return fmt.Errorf("docusign.connect_secret is required when DocuSign is configured in production")
		}
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
