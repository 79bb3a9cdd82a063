package storage

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/grimoire/internal/domain/models"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

// MemStorage is the fallback store used when the database is unreachable.
type MemStorage struct {
	usersStor map[string]models.User
	bookStor  map[string]models.Book
}

func New() *MemStorage {
	return &MemStorage{
		usersStor: make(map[string]models.User),
		bookStor:  make(map[string]models.Book),
	}
}

func (ms *MemStorage) SaveUser(user models.User) (string, error) {
	if _, err := ms.findUser(user.Email); err == nil {
		return "", storerrros.ErrUserExists
	}
	uid := uuid.New().String()
	user.UID = uid
	ms.usersStor[uid] = user
	return uid, nil
}

func (ms *MemStorage) ValidUser(user models.User) (string, error) {
	memUser, err := ms.findUser(user.Email)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(memUser.Pass), []byte(user.Pass)); err != nil {
		return "", storerrros.ErrInvalidPassword
	}
	return memUser.UID, nil
}

func (ms *MemStorage) SaveBook(book models.Book) error {
	if book.BID == "" {
		book.BID = uuid.New().String()
	}
	ms.bookStor[book.BID] = book
	return nil
}

func (ms *MemStorage) GetBooks() ([]models.Book, error) {
	var books []models.Book
	for _, book := range ms.bookStor {
		books = append(books, book)
	}
	return books, nil
}

func (ms *MemStorage) GetBook(bid string) (models.Book, error) {
	book, ok := ms.bookStor[bid]
	if !ok {
		return models.Book{}, storerrros.ErrBookNotFound
	}
	return book, nil
}

func (ms *MemStorage) UpdateBook(book models.Book) error {
	if _, ok := ms.bookStor[book.BID]; !ok {
		return storerrros.ErrBookNotFound
	}
	stored := ms.bookStor[book.BID]
	stored.Title = book.Title
	stored.Author = book.Author
	stored.Year = book.Year
	stored.Genre = book.Genre
	stored.ImageURL = book.ImageURL
	ms.bookStor[book.BID] = stored
	return nil
}

func (ms *MemStorage) DeleteBook(bid string) error {
	if _, ok := ms.bookStor[bid]; !ok {
		return storerrros.ErrBookNotFound
	}
	delete(ms.bookStor, bid)
	return nil
}

func (ms *MemStorage) AddRating(bid, uid string, grade float64) (models.Book, error) {
	book, ok := ms.bookStor[bid]
	if !ok {
		return models.Book{}, storerrros.ErrBookNotFound
	}
	for _, rating := range book.Ratings {
		if rating.UserID == uid {
			return models.Book{}, storerrros.ErrAlreadyRated
		}
	}
	book.Ratings = append(book.Ratings, models.Rating{UserID: uid, Grade: grade})
	var sum float64
	for _, rating := range book.Ratings {
		sum += rating.Grade
	}
	book.AverageRating = sum / float64(len(book.Ratings))
	ms.bookStor[bid] = book
	return book, nil
}

func (ms *MemStorage) findUser(email string) (models.User, error) {
	for _, user := range ms.usersStor {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, storerrros.ErrUserNotFound
}
