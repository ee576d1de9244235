package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	Routing    RoutingConfig
	Matching   MatchingConfig
	Tracking   TrackingConfig
	Commercial CommercialConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// RoutingConfig holds the external routing provider configuration.
type RoutingConfig struct {
	OSRMEndpoint string
	Timeout      time.Duration
}

// MatchingConfig holds negotiation and cancellation thresholds. The exact
// windows differ slightly per service type; they are configuration, not
// hard-coded policy.
type MatchingConfig struct {
	TaxiWindow      time.Duration // direct matching, short window
	MandaditoWindow time.Duration
	MotoRideWindow  time.Duration
	OfferTTL        time.Duration

	CancelFreeWindowMandadito time.Duration
	CancelFreeWindowDefault   time.Duration
	CancelProximityMeters     float64
}

// NegotiationWindow returns the per-service-type negotiation deadline.
func (c MatchingConfig) NegotiationWindow(serviceType string) time.Duration {
	switch serviceType {
	case "taxi":
		return c.TaxiWindow
	case "moto_ride":
		return c.MotoRideWindow
	default:
		return c.MandaditoWindow
	}
}

// CancelFreeWindow returns the per-service-type free-cancellation window.
func (c MatchingConfig) CancelFreeWindow(serviceType string) time.Duration {
	if serviceType == "mandadito" {
		return c.CancelFreeWindowMandadito
	}
	return c.CancelFreeWindowDefault
}

// TrackingConfig holds live-tracking thresholds.
type TrackingConfig struct {
	StaleAfter              time.Duration
	RerouteInterval         time.Duration
	OffRouteThresholdMeters float64
	MaxRouteLegMeters       float64

	CameraDefaultZoom  float64
	CameraEaseDuration time.Duration
	CameraMinInterval  time.Duration
}

// CommercialConfig holds pricing constants.
type CommercialConfig struct {
	ServiceFee     float64 // fixed fee added to the mandadito grand total
	CommissionRate float64 // platform cut of the final price
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "movix"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "movix-backend"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Routing: RoutingConfig{
			OSRMEndpoint: getEnv("OSRM_ENDPOINT", "http://localhost:5000"),
			Timeout:      getDurationEnv("OSRM_TIMEOUT", 5*time.Second),
		},
		Matching: MatchingConfig{
			TaxiWindow:      getDurationEnv("TAXI_NEGOTIATION_WINDOW", 45*time.Second),
			MandaditoWindow: getDurationEnv("MANDADITO_NEGOTIATION_WINDOW", 110*time.Second),
			MotoRideWindow:  getDurationEnv("MOTO_NEGOTIATION_WINDOW", 110*time.Second),
			OfferTTL:        getDurationEnv("OFFER_TTL", 60*time.Second),

			CancelFreeWindowMandadito: getDurationEnv("CANCEL_FREE_WINDOW_MANDADITO", 3*time.Minute),
			CancelFreeWindowDefault:   getDurationEnv("CANCEL_FREE_WINDOW_DEFAULT", 5*time.Minute),
			CancelProximityMeters:     getFloatEnv("CANCEL_PROXIMITY_METERS", 300),
		},
		Tracking: TrackingConfig{
			StaleAfter:              getDurationEnv("LOCATION_STALE_AFTER", 10*time.Second),
			RerouteInterval:         getDurationEnv("REROUTE_INTERVAL", 30*time.Second),
			OffRouteThresholdMeters: getFloatEnv("OFFROUTE_THRESHOLD_METERS", 70),
			MaxRouteLegMeters:       getFloatEnv("MAX_ROUTE_LEG_METERS", 300000),

			CameraDefaultZoom:  getFloatEnv("CAMERA_DEFAULT_ZOOM", 16),
			CameraEaseDuration: getDurationEnv("CAMERA_EASE_DURATION", 600*time.Millisecond),
			CameraMinInterval:  getDurationEnv("CAMERA_MIN_INTERVAL", 200*time.Millisecond),
		},
		Commercial: CommercialConfig{
			ServiceFee:     getFloatEnv("MANDADITO_SERVICE_FEE", 25),
			CommissionRate: getFloatEnv("COMMISSION_RATE", 0.15),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
