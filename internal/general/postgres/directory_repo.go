package postgres

import (
	"context"
	"fmt"

	"ride-pool/internal/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryRepo resolves actor ids against the relational user directory.
// It is read-only; the core never writes profile data.
type DirectoryRepo struct {
	pool *pgxpool.Pool
}

// NewDirectoryRepo constructs a DirectoryRepo on the given pool.
func NewDirectoryRepo(pool *pgxpool.Pool) *DirectoryRepo {
	return &DirectoryRepo{pool: pool}
}

// Lookup returns profile projections for the given ids. Missing ids are
// simply absent from the result map; the caller substitutes placeholders.
func (repo *DirectoryRepo) Lookup(ctx context.Context, ids []string) (map[string]ports.Profile, error) {
	out := make(map[string]ports.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := repo.pool.Query(ctx, `
		SELECT id, name, email, phone, department, year
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ports.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Department, &p.Year); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}
