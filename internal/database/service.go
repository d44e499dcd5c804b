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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
	now       func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate takes the write lock at BEGIN so balance read-modify-write
	// sequences are serialized across connections.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize subledger schema
	if err := service.subledger.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	if cfg.SeedDemoData {
		service.seedDemoData(ctx)
	} else {
		zap.L().Info("Skipping demo data creation (SEED_DEMO_DATA=false)")
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	now := func() time.Time { return time.Now().UTC() }
	return &Service{db: db, subledger: NewSubledgerService(db, now), now: now}
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Receivers hold the custodial balance; version backs optimistic locking
	CREATE TABLE IF NOT EXISTS receivers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		dob TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		email TEXT NOT NULL DEFAULT '',
		has_app_access BOOLEAN NOT NULL DEFAULT 0,
		id_picture_file TEXT NOT NULL DEFAULT '',
		id_document_file TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_receivers_email ON receivers(email);

	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		banner_file TEXT NOT NULL DEFAULT '',
		logo_file TEXT NOT NULL DEFAULT '',
		max_occupancy INTEGER,
		occupancy INTEGER NOT NULL DEFAULT 0,
		street TEXT NOT NULL DEFAULT '',
		apt TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		province TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		latitude REAL,
		longitude REAL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS senders (
		id TEXT PRIMARY KEY,
		is_anonymous BOOLEAN NOT NULL DEFAULT 0,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		apt TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		province TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_senders_anonymous ON senders(is_anonymous, name, postal_code);

	-- Auth provider uid to internal account mapping
	CREATE TABLE IF NOT EXISTS users (
		auth_uid TEXT PRIMARY KEY,
		internal_id TEXT NOT NULL,
		role TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_internal_id ON users(internal_id);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		content TEXT NOT NULL,
		visibility TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_parent_id ON posts(parent_id);

	-- Author index holds root posts only
	CREATE TABLE IF NOT EXISTS post_authors (
		author_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (author_id, post_id)
	);

	CREATE INDEX IF NOT EXISTS idx_post_authors_post_id ON post_authors(post_id);

	-- Public index holds posts with visibility 'all'
	CREATE TABLE IF NOT EXISTS post_public (
		post_id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS post_likes (
		post_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (post_id, user_id)
	);

	-- friends_since NULL means the request from user_1 to user_2 is pending
	CREATE TABLE IF NOT EXISTS friendships (
		id TEXT PRIMARY KEY,
		user_1 TEXT NOT NULL,
		user_2 TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		friends_since TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_friendships_user_1 ON friendships(user_1);
	CREATE INDEX IF NOT EXISTS idx_friendships_user_2 ON friendships(user_2);

	CREATE TABLE IF NOT EXISTS subscriptions (
		receiver_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		PRIMARY KEY (receiver_id, organization_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedDemoData inserts a few receivers and one shelter for local testing.
func (s *Service) seedDemoData(ctx context.Context) {
	receivers := []store.CreateReceiverParams{
		{FirstName: "Alice", LastName: "Johnson", DateOfBirth: "01-02-1980"},
		{FirstName: "Bob", LastName: "Smith", DateOfBirth: "15-07-1975"},
		{FirstName: "Carol", LastName: "Williams", DateOfBirth: "30-11-1990"},
	}

	for _, params := range receivers {
		receiver, err := s.CreateReceiver(ctx, params)
		if err != nil {
			zap.L().Error("Failed to insert demo receiver", zap.String("name", params.FirstName), zap.Error(err))
			continue
		}
		zap.L().Info("Demo receiver created", zap.String("id", receiver.Id), zap.String("name", params.FirstName))
	}

	maxOccupancy := 40
	org, err := s.CreateOrganization(ctx, store.CreateOrganizationParams{
		Name: "Mission Old Brewery",
		Address: models.Address{
			Street: "902 Boulevard Saint-Laurent", City: "Montreal", Province: "QC",
			PostalCode: "H2Z 1J2", Country: "CA",
		},
		MaxOccupancy: &maxOccupancy,
	})
	if err != nil {
		zap.L().Error("Failed to insert demo organization", zap.Error(err))
		return
	}
	zap.L().Info("Demo organization created", zap.String("id", org.Id), zap.String("name", org.Name))
}

// closeRows closes a result set, logging rather than returning the error.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func rowsAffected(result sql.Result) (int64, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected, nil
}
