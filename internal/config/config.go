/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"donneur-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	paymentsTimeout, err := getEnvDuration("PAYMENTS_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := getEnvDuration("GEOCODER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "donneur.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			SeedDemoData:    getEnvBool("SEED_DEMO_DATA", false),
		},
		Server: models.ServerConfig{
			Address:         getEnvString("SERVER_ADDRESS", ":8080"),
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  getEnvList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Auth: models.AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Issuer:    getEnvString("AUTH_ISSUER", ""),
		},
		Payments: models.PaymentsConfig{
			StripeKey:      os.Getenv("STRIPE_SECRET_KEY"),
			Currency:       getEnvString("PAYMENTS_CURRENCY", "cad"),
			RequestTimeout: paymentsTimeout,
		},
		Geocoder: models.GeocoderConfig{
			APIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
			BaseURL: getEnvString("GEOCODER_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
			Timeout: geocoderTimeout,
		},
		Mail: models.MailConfig{
			Host:     getEnvString("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvString("MAIL_FROM", "no-reply@donneur.ca"),
			LinkBase: getEnvString("ACCOUNT_LINK_BASE", "https://donneur.ca"),
		},
		Media: models.MediaConfig{
			Bucket: os.Getenv("MEDIA_BUCKET"),
			Region: getEnvString("AWS_REGION", "ca-central-1"),
			Prefix: getEnvString("MEDIA_PREFIX", ""),
		},
		Formance: models.FormanceConfig{
			URL:          os.Getenv("FORMANCE_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			Ledger:       getEnvString("FORMANCE_LEDGER", "donneur"),
		},
		Feed: models.FeedConfig{
			PageSize:  getEnvInt("FEED_PAGE_SIZE", 20),
			CacheSize: getEnvInt("FEED_CACHE_SIZE", 1024),
		},
	}

	if cfg.Feed.PageSize <= 0 {
		return nil, fmt.Errorf("feed page size must be positive, got %d", cfg.Feed.PageSize)
	}
	if cfg.Feed.CacheSize <= 0 {
		return nil, fmt.Errorf("feed cache size must be positive, got %d", cfg.Feed.CacheSize)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
