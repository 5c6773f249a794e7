package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/models"
	"gorm.io/gorm"
)

// UserStore keeps accounts of every role.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// UserPatch changes the non-empty fields only.
type UserPatch struct {
	Name    string
	Email   string
	Address string
	Phone   string
	MeterNo string
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u. The e-mail must not belong to any other account.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	if !u.Role.Valid() {
		return apperr.Validation("role", "invalid role")
	}

	db := s.db.WithContext(ctx)
	if err := ensureEmailFree(db, u.Email, 0); err != nil {
		return err
	}

	err := db.Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("email already exists")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail is used by login.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Take(&u, "email = ?", NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// Get returns the account with id, provided it has role.
func (s *UserStore) Get(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	return getWithRole(s.db.WithContext(ctx), id, role)
}

func getWithRole(db *gorm.DB, id uint, role models.Role) (*models.User, error) {
	var u models.User
	err := db.Where("id = ? AND role = ?", id, role).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(string(role))
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", role, err)
	}
	return &u, nil
}

// ListByRole returns accounts with role, newest first.
func (s *UserStore) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at DESC").
		Order("id DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list %s accounts: %w", role, err)
	}
	return users, nil
}

// Update applies the non-empty fields of patch to the account.
func (s *UserStore) Update(ctx context.Context, id uint, role models.Role, patch UserPatch) (*models.User, error) {
	var out *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := getWithRole(tx, id, role)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if v := strings.TrimSpace(patch.Name); v != "" {
			updates["name"] = v
		}
		if v := NormalizeEmail(patch.Email); v != "" && v != u.Email {
			if err := ensureEmailFree(tx, v, u.ID); err != nil {
				return err
			}
			updates["email"] = v
		}
		if v := strings.TrimSpace(patch.Address); v != "" {
			updates["address"] = v
		}
		if v := strings.TrimSpace(patch.Phone); v != "" {
			updates["phone"] = v
		}
		if v := strings.TrimSpace(patch.MeterNo); v != "" {
			updates["meter_no"] = v
		}

		if len(updates) > 0 {
			err := tx.Model(u).Updates(updates).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("email already exists")
			}
			if err != nil {
				return fmt.Errorf("update %s: %w", role, err)
			}
		}

		out, err = getWithRole(tx, id, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an account. Customers that still have bills are kept.
func (s *UserStore) Delete(ctx context.Context, id uint, role models.Role) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getWithRole(tx, id, role); err != nil {
			return err
		}

		if role == models.RoleCustomer {
			var bills int64
			if err := tx.Model(&models.Bill{}).Where("customer_id = ?", id).Count(&bills).Error; err != nil {
				return fmt.Errorf("count customer bills: %w", err)
			}
			if bills > 0 {
				return apperr.Conflict("customer has %d bills and cannot be deleted", bills)
			}
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete %s: %w", role, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound(string(role))
		}
		return nil
	})
}

func ensureEmailFree(db *gorm.DB, email string, exceptID uint) error {
	var n int64
	q := db.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return apperr.Conflict("email already exists")
	}
	return nil
}
