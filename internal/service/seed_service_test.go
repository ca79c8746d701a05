package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/archive-api/internal/models"
)

type seedSubcategoryRepo struct {
	items []models.Subcategory
}

func (m *seedSubcategoryRepo) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	for _, s := range m.items {
		if s.Code == code && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *seedSubcategoryRepo) Create(ctx context.Context, s *models.Subcategory) error {
	s.ID = s.Code
	m.items = append(m.items, *s)
	return nil
}

type memUserRepo struct {
	users map[string]*models.User
}

func (m *memUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyU := *u
	return &copyU, nil
}

func (m *memUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	copyU := *user
	m.users[user.Email] = &copyU
	return nil
}

func TestSeedServiceRunIsIdempotent(t *testing.T) {
	categories := newMemCategoryRepo()
	subcategories := &seedSubcategoryRepo{}
	types := newMemTypeRepo()
	rules := &memRules{}
	users := &memUserRepo{users: map[string]*models.User{}}
	svc := NewSeedService(categories, subcategories, types, rules, users, zap.NewNop())
	admin := SeedAdmin{Email: "admin@archive.local", Password: "s3cret!"}

	first, err := svc.Run(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Categories: 6, Subcategories: 4, DocumentTypes: 5, Rules: 4, Users: 1}, first)

	fin, err := categories.GetByCode(context.Background(), "FIN")
	require.NoError(t, err)
	for _, s := range subcategories.items {
		if s.Code == "invoices" {
			assert.Equal(t, fin.ID, s.CategoryID)
		}
	}
	for _, r := range rules.rules {
		assert.Equal(t, models.RuleKeyword, r.RuleType)
		assert.Equal(t, 1, r.Priority)
	}
	contract, err := types.GetByCode(context.Background(), "CON")
	require.NoError(t, err)
	assert.True(t, contract.RequiresEncryption)
	assert.Equal(t, 10, contract.RetentionPeriod)

	user := users.users["admin@archive.local"]
	assert.Equal(t, models.RoleSystemManager, user.Role)
	assert.Equal(t, "Archive Administrator", user.FullName)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!")))

	second, err := svc.Run(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{}, second)
}

func TestSeedServiceSkipsAdminWithoutCredentials(t *testing.T) {
	users := &memUserRepo{users: map[string]*models.User{}}
	svc := NewSeedService(newMemCategoryRepo(), &seedSubcategoryRepo{}, newMemTypeRepo(), &memRules{}, users, zap.NewNop())

	res, err := svc.Run(context.Background(), SeedAdmin{Email: "admin@archive.local"})
	require.NoError(t, err)
	assert.Zero(t, res.Users)
	assert.Empty(t, users.users)
}
