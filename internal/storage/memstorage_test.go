package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/grimoire/internal/domain/models"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

func TestSaveUser_DuplicateEmail(t *testing.T) {
	ms := New()

	_, err := ms.SaveUser(models.User{Email: "a@x.com", Pass: "hash"})
	require.NoError(t, err)

	_, err = ms.SaveUser(models.User{Email: "a@x.com", Pass: "other"})
	assert.ErrorIs(t, err, storerrros.ErrUserExists)
}

func TestValidUser(t *testing.T) {
	ms := New()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw1"), bcrypt.DefaultCost)
	require.NoError(t, err)
	uid, err := ms.SaveUser(models.User{Email: "a@x.com", Pass: string(hash)})
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		got, err := ms.ValidUser(models.User{Email: "a@x.com", Pass: "pw1"})
		require.NoError(t, err)
		assert.Equal(t, uid, got)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := ms.ValidUser(models.User{Email: "a@x.com", Pass: "pw2"})
		assert.ErrorIs(t, err, storerrros.ErrInvalidPassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := ms.ValidUser(models.User{Email: "b@x.com", Pass: "pw1"})
		assert.ErrorIs(t, err, storerrros.ErrUserNotFound)
	})
}

func TestAddRating(t *testing.T) {
	ms := New()

	book := models.Book{
		BID:           "b1",
		UserID:        "u1",
		Title:         "Vieux Grimoire",
		Author:        "Sophie",
		Ratings:       []models.Rating{{UserID: "u1", Grade: 4}},
		AverageRating: 4,
	}
	require.NoError(t, ms.SaveBook(book))

	t.Run("average is the mean of all grades", func(t *testing.T) {
		updated, err := ms.AddRating("b1", "u2", 2)
		require.NoError(t, err)
		assert.Len(t, updated.Ratings, 2)
		assert.InDelta(t, 3, updated.AverageRating, 1e-9)
	})

	t.Run("second rating by the same user is rejected", func(t *testing.T) {
		_, err := ms.AddRating("b1", "u2", 5)
		assert.ErrorIs(t, err, storerrros.ErrAlreadyRated)

		stored, err := ms.GetBook("b1")
		require.NoError(t, err)
		assert.Len(t, stored.Ratings, 2)
		assert.InDelta(t, 3, stored.AverageRating, 1e-9)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := ms.AddRating("nope", "u2", 3)
		assert.ErrorIs(t, err, storerrros.ErrBookNotFound)
	})
}

func TestUpdateBook_PreservesOwnerAndRatings(t *testing.T) {
	ms := New()

	require.NoError(t, ms.SaveBook(models.Book{
		BID:           "b1",
		UserID:        "u1",
		Title:         "Old",
		Author:        "A",
		Ratings:       []models.Rating{{UserID: "u1", Grade: 5}},
		AverageRating: 5,
	}))

	err := ms.UpdateBook(models.Book{BID: "b1", UserID: "hijacker", Title: "New", Author: "B"})
	require.NoError(t, err)

	stored, err := ms.GetBook("b1")
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "New", stored.Title)
	assert.Len(t, stored.Ratings, 1)
	assert.InDelta(t, 5, stored.AverageRating, 1e-9)
}

func TestDeleteBook(t *testing.T) {
	ms := New()

	require.NoError(t, ms.SaveBook(models.Book{BID: "b1", Title: "T", Author: "A"}))
	require.NoError(t, ms.DeleteBook("b1"))
	assert.ErrorIs(t, ms.DeleteBook("b1"), storerrros.ErrBookNotFound)
}
