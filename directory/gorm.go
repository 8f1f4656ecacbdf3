package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// userRow is the users table as gorm sees it. The schema itself is owned by
// the goose migrations in migrations/.
type userRow struct {
	ID           string `gorm:"primaryKey"`
	Username     string
	PasswordHash string
	Email        string
	DisplayName  *string
	Organization *string
	Role         catalogAuth.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toUser() catalogAuth.User {
	return catalogAuth.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		Organization: r.Organization,
		Role:         r.Role,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Gorm is a PostgreSQL UserDirectory built on gorm.
type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn. SQL statements are logged through l at Warn
// (slow queries and errors only) with bind parameters elided.
func OpenPostgres(dsn string, l *zap.Logger) (*gorm.DB, error) {
	if l == nil {
		l = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(zap.NewStdLog(l.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewGorm wraps an open gorm handle. Run Migrate first.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) GetUserByUsername(ctx context.Context, username string) (catalogAuth.User, error) {
	var row userRow
	err := g.db.WithContext(ctx).Where("username = ?", username).Take(&row).Error
	if err != nil {
		return catalogAuth.User{}, mapError(err)
	}
	return row.toUser(), nil
}

func (g *Gorm) GetUserByID(ctx context.Context, id string) (catalogAuth.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalogAuth.User{}, catalogAuth.ErrUserNotFound
	}

	var row userRow
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return catalogAuth.User{}, mapError(err)
	}
	return row.toUser(), nil
}

func (g *Gorm) CreateUser(ctx context.Context, in catalogAuth.NewUser) (catalogAuth.User, error) {
	now := time.Now().UTC()
	row := userRow{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Organization: in.Organization,
		Role:         in.Role,
		IsActive:     in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return catalogAuth.User{}, mapError(err)
	}
	return row.toUser(), nil
}

func (g *Gorm) ListUsers(ctx context.Context) ([]catalogAuth.User, error) {
	var rows []userRow
	if err := g.db.WithContext(ctx).Order("username").Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}

	out := make([]catalogAuth.User, len(rows))
	for i, r := range rows {
		out[i] = r.toUser()
	}
	return out, nil
}

func (g *Gorm) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return g.updateColumns(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (g *Gorm) UpdateRole(ctx context.Context, id string, role catalogAuth.Role) (catalogAuth.User, error) {
	if err := g.updateColumns(ctx, id, map[string]any{"role": role}); err != nil {
		return catalogAuth.User{}, err
	}
	return g.GetUserByID(ctx, id)
}

func (g *Gorm) UpdateActive(ctx context.Context, id string, active bool) (catalogAuth.User, error) {
	if err := g.updateColumns(ctx, id, map[string]any{"is_active": active}); err != nil {
		return catalogAuth.User{}, err
	}
	return g.GetUserByID(ctx, id)
}

func (g *Gorm) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	if _, err := uuid.Parse(id); err != nil {
		return catalogAuth.ErrUserNotFound
	}
	cols["updated_at"] = time.Now().UTC()

	res := g.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return catalogAuth.ErrUserNotFound
	}
	return nil
}

// mapError turns driver errors into directory sentinels. Everything else is
// passed through wrapped; it never carries credential material since
// statements are parameterized.
func mapError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalogAuth.ErrUserNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return catalogAuth.ErrUsernameTaken
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return catalogAuth.ErrUsernameTaken
	}
	return fmt.Errorf("db error: %w", err)
}
