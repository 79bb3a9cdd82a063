package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/azaliaz/grimoire/internal/domain/consts"
	"github.com/azaliaz/grimoire/internal/domain/models"
	"github.com/azaliaz/grimoire/internal/images"
	"github.com/azaliaz/grimoire/internal/logger"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

const bestBooksCount = 3

// получение списка всех книг из хранилища и возврат их клиенту в формате JSON.
func (s *Server) AllBooks(ctx *gin.Context) {
	books, err := s.Storage.GetBooks()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	ctx.JSON(http.StatusOK, books)
}

// BestRating returns the three best-rated books. The catalog is small, so
// the sort is done in memory on every call.
func (s *Server) BestRating(ctx *gin.Context) {
	books, err := s.Storage.GetBooks()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].AverageRating > books[j].AverageRating
	})
	if len(books) > bestBooksCount {
		books = books[:bestBooksCount]
	}
	if books == nil {
		books = []models.Book{}
	}
	ctx.JSON(http.StatusOK, books)
}

func (s *Server) BookInfo(ctx *gin.Context) {
	id := ctx.Param("id")
	book, err := s.Storage.GetBook(id)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, book)
}

func (s *Server) CreateBook(ctx *gin.Context) {
	log := logger.Get()

	uid := ctx.GetString("uid")
	if uid == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "user ID not found"})
		return
	}

	if err := ctx.Request.ParseMultipartForm(consts.MaxUploadSize); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form"})
		return
	}

	var book models.Book
	if err := json.Unmarshal([]byte(ctx.Request.FormValue("book")), &book); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid book payload"})
		return
	}
	if err := s.valid.Struct(book); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filename, err := s.storeImage(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to store image")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filename == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to get image file"})
		return
	}
	if err := images.Fit(filepath.Join(s.cfg.ImageDir, filename)); err != nil {
		log.Error().Err(err).Msg("failed to resize image")
		s.removeImage(filename)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the first grade always belongs to the creator, whatever the payload says
	var grade float64
	if len(book.Ratings) > 0 {
		grade = book.Ratings[0].Grade
	}
	book.BID = ""
	book.UserID = uid
	book.Ratings = []models.Rating{{UserID: uid, Grade: grade}}
	book.AverageRating = grade
	book.ImageURL = imageURL(ctx, filename)

	if err := s.Storage.SaveBook(book); err != nil {
		log.Error().Err(err).Msg("save book failed")
		s.removeImage(filename)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "book saved"})
}

func (s *Server) EditBook(ctx *gin.Context) {
	log := logger.Get()
	uid := ctx.GetString("uid")
	id := ctx.Param("id")

	book, err := s.Storage.GetBook(id)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if book.UserID != uid {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "unauthorized request"})
		return
	}

	var patch models.Book
	var filename string
	if ctx.ContentType() == "multipart/form-data" {
		if err := ctx.Request.ParseMultipartForm(consts.MaxUploadSize); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form"})
			return
		}
		if err := json.Unmarshal([]byte(ctx.Request.FormValue("book")), &patch); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid book payload"})
			return
		}
		filename, err = s.storeImage(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to store image")
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if filename != "" {
			if err := images.Fit(filepath.Join(s.cfg.ImageDir, filename)); err != nil {
				log.Error().Err(err).Msg("failed to resize image")
				s.removeImage(filename)
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
	} else {
		if err := ctx.ShouldBindJSON(&patch); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// owner and ratings never come from the client
	book.Title = patch.Title
	book.Author = patch.Author
	book.Year = patch.Year
	book.Genre = patch.Genre
	if filename != "" {
		book.ImageURL = imageURL(ctx, filename)
	}

	if err := s.Storage.UpdateBook(book); err != nil {
		log.Error().Err(err).Msg("update book failed")
		s.removeImage(filename)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "book modified"})
}

func (s *Server) DeleteBook(ctx *gin.Context) {
	log := logger.Get()
	uid := ctx.GetString("uid")
	id := ctx.Param("id")

	book, err := s.Storage.GetBook(id)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if book.UserID != uid {
		ctx.JSON(http.StatusForbidden, gin.H{"message": "unauthorized request"})
		return
	}

	s.removeImage(path.Base(book.ImageURL))
	if err := s.Storage.DeleteBook(id); err != nil {
		log.Error().Err(err).Msg("failed to delete book")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}

type ratingRequest struct {
	UserID string  `json:"userId"`
	Rating float64 `json:"rating"`
}

func (s *Server) RateBook(ctx *gin.Context) {
	log := logger.Get()
	id := ctx.Param("id")

	var req ratingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	book, err := s.Storage.AddRating(id, req.UserID, req.Rating)
	if err != nil {
		if errors.Is(err, storerrros.ErrAlreadyRated) {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		log.Error().Err(err).Msg("add rating failed")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, book)
}
