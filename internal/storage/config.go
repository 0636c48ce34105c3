package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"billtracker/internal/core"
	"billtracker/internal/store"
)

// seed writes the default reference data and the administrator account into
// an empty database.
func (r *SQLiteRepository) seed(ctx context.Context, admin core.UserInput) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_config`).Scan(&n); err != nil {
		return fmt.Errorf("count config: %w", err)
	}
	if n == 0 {
		if err := r.writeConfig(ctx, core.DefaultConfiguration()); err != nil {
			return fmt.Errorf("seed config: %w", err)
		}
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&n); err != nil {
		return fmt.Errorf("count locations: %w", err)
	}
	if n == 0 {
		for i, name := range core.DefaultLocations {
			if _, err := r.db.ExecContext(ctx, `INSERT INTO locations (name, position) VALUES (?, ?)`, name, i); err != nil {
				return fmt.Errorf("seed location %q: %w", name, err)
			}
		}
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n == 0 {
		if admin.Username == "" {
			admin.Username, admin.Password = "admin", "admin"
		}
		admin.Role = core.RoleAdmin
		acc, err := store.NewAccount(admin)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if err := r.insertAccount(ctx, acc); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		r.logger.Info("Seeded administrator account", "username", acc.User.Username)
	}
	return nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context) (core.Configuration, error) {
	if _, err := r.session.Current(); err != nil {
		return core.Configuration{}, err
	}
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM app_config WHERE id = 1`).Scan(&data)
	if isNoRows(err) {
		return core.DefaultConfiguration(), nil
	}
	if err != nil {
		return core.Configuration{}, fmt.Errorf("get config: %w", err)
	}
	var cfg core.Configuration
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return core.Configuration{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) SaveConfig(ctx context.Context, cfg core.Configuration) error {
	if _, err := r.session.Current(); err != nil {
		return err
	}
	return r.writeConfig(ctx, cfg)
}

func (r *SQLiteRepository) writeConfig(ctx context.Context, cfg core.Configuration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO app_config (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, string(data))
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListLocations(ctx context.Context) ([]string, error) {
	if _, err := r.session.Current(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM locations ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	locations := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, name)
	}
	return locations, rows.Err()
}
