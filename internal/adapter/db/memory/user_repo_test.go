package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-contract-service/internal/domain/user"
)

func TestSeededUserRepo_Lookup(t *testing.T) {
	repo := NewSeededUserRepo()

	tests := []struct {
		name  string
		id    int64
		want  user.User
		found bool
	}{
		{name: "first seed user", id: 1, want: user.User{ID: 1, Name: "John Doe", Email: "john.doe@example.com"}, found: true},
		{name: "second seed user", id: 2, want: user.User{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com"}, found: true},
		{name: "absent id", id: 3, found: false},
		{name: "zero id", id: 0, found: false},
		{name: "negative id", id: -1, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := repo.Lookup(tt.id)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUserRepo_GetByID(t *testing.T) {
	repo := NewSeededUserRepo()
	ctx := context.Background()

	u, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Jane Smith", u.Name)

	missing, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepo_GetByIDReturnsCopy(t *testing.T) {
	repo := NewSeededUserRepo()
	ctx := context.Background()

	u, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	u.Name = "mutated"

	again, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", again.Name)
}

func TestUserRepo_RepeatedLookupsAreStable(t *testing.T) {
	repo := NewSeededUserRepo()

	first, _ := repo.Lookup(1)
	for i := 0; i < 10; i++ {
		got, ok := repo.Lookup(1)
		require.True(t, ok)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, 2, repo.Len())
}
