package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/azaliaz/grimoire/internal/domain/consts"
	"github.com/azaliaz/grimoire/internal/domain/models"
	"github.com/azaliaz/grimoire/internal/logger"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

type DBStorage struct {
	pool *pgxpool.Pool
}

func NewDB(ctx context.Context, addr string) (*DBStorage, error) {
	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return &DBStorage{pool: pool}, nil
}

func (dbs *DBStorage) Close() {
	dbs.pool.Close()
}

func (dbs *DBStorage) SaveUser(user models.User) (string, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	uid := uuid.New().String()
	_, err := dbs.pool.Exec(ctx, `INSERT INTO users (uid, email, pass) VALUES ($1, $2, $3)`,
		uid, user.Email, user.Pass)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", storerrros.ErrUserExists
		}
		log.Error().Err(err).Msg("failed to insert user")
		return "", err
	}
	return uid, nil
}

func (dbs *DBStorage) ValidUser(user models.User) (string, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	var usr models.User
	row := dbs.pool.QueryRow(ctx, `SELECT uid, email, pass FROM users WHERE email = $1`, user.Email)
	if err := row.Scan(&usr.UID, &usr.Email, &usr.Pass); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storerrros.ErrUserNotFound
		}
		log.Error().Err(err).Msg("failed scan db data")
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.Pass), []byte(user.Pass)); err != nil {
		return "", storerrros.ErrInvalidPassword
	}
	return usr.UID, nil
}

func (dbs *DBStorage) SaveBook(book models.Book) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	if book.BID == "" {
		book.BID = uuid.New().String()
	}
	ratings, err := json.Marshal(book.Ratings)
	if err != nil {
		return err
	}
	_, err = dbs.pool.Exec(ctx,
		`INSERT INTO books (bid, user_id, title, author, year, genre, image_url, ratings, average_rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`,
		book.BID, book.UserID, book.Title, book.Author, book.Year, book.Genre,
		book.ImageURL, ratings, book.AverageRating)
	if err != nil {
		log.Error().Err(err).Msg("save book failed")
		return err
	}
	return nil
}

func (dbs *DBStorage) GetBooks() ([]models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	rows, err := dbs.pool.Query(ctx,
		`SELECT bid, user_id, title, author, year, genre, image_url, ratings, average_rating FROM books`)
	if err != nil {
		log.Error().Err(err).Msg("failed get all books from db")
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan data from db")
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (dbs *DBStorage) GetBook(bid string) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	row := dbs.pool.QueryRow(ctx,
		`SELECT bid, user_id, title, author, year, genre, image_url, ratings, average_rating
		FROM books WHERE bid = $1`, bid)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, storerrros.ErrBookNotFound
		}
		log.Error().Err(err).Msg("failed to scan data from db")
		return models.Book{}, err
	}
	return book, nil
}

func (dbs *DBStorage) UpdateBook(book models.Book) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx,
		`UPDATE books SET title = $2, author = $3, year = $4, genre = $5, image_url = $6 WHERE bid = $1`,
		book.BID, book.Title, book.Author, book.Year, book.Genre, book.ImageURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to update book")
		return err
	}
	if res.RowsAffected() == 0 {
		return storerrros.ErrBookNotFound
	}
	return nil
}

func (dbs *DBStorage) DeleteBook(bid string) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, `DELETE FROM books WHERE bid = $1`, bid)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete book")
		return err
	}
	if res.RowsAffected() == 0 {
		return storerrros.ErrBookNotFound
	}
	log.Info().Str("bid", bid).Msg("book deleted")
	return nil
}

// AddRating appends the rating and recomputes the average in a single
// conditional UPDATE, so two concurrent raters can never lose each other's
// write. No row updated means either a duplicate rater or a missing book.
func (dbs *DBStorage) AddRating(bid, uid string, grade float64) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	rating, err := json.Marshal(models.Rating{UserID: uid, Grade: grade})
	if err != nil {
		return models.Book{}, err
	}
	row := dbs.pool.QueryRow(ctx,
		`UPDATE books
		SET ratings = ratings || $3::jsonb,
			average_rating = (
				SELECT AVG((r->>'grade')::double precision)
				FROM jsonb_array_elements(ratings || $3::jsonb) AS r
			)
		WHERE bid = $1
			AND NOT EXISTS (
				SELECT 1 FROM jsonb_array_elements(ratings) AS r WHERE r->>'userId' = $2
			)
		RETURNING bid, user_id, title, author, year, genre, image_url, ratings, average_rating`,
		bid, uid, rating)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := dbs.GetBook(bid); getErr != nil {
				return models.Book{}, getErr
			}
			return models.Book{}, storerrros.ErrAlreadyRated
		}
		log.Error().Err(err).Msg("failed to add rating")
		return models.Book{}, err
	}
	return book, nil
}

func scanBook(row pgx.Row) (models.Book, error) {
	var book models.Book
	var ratings []byte
	if err := row.Scan(&book.BID, &book.UserID, &book.Title, &book.Author, &book.Year,
		&book.Genre, &book.ImageURL, &ratings, &book.AverageRating); err != nil {
		return models.Book{}, err
	}
	if err := json.Unmarshal(ratings, &book.Ratings); err != nil {
		return models.Book{}, err
	}
	return book, nil
}

func Migrations(dbDsn string, migrationsPath string) error {
	log := logger.Get()
	migratePath := fmt.Sprintf("file://%s", migrationsPath)
	m, err := migrate.New(migratePath, dbDsn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations apply")
			return nil
		}
		return err
	}
	log.Info().Msg("all migrations apply")
	return nil
}
