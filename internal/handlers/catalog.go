package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saiblibrary/internal/models"
	"saiblibrary/internal/services"
)

// ─── Books ────────────────────────────────────────────────────────────────────

type bookRequest struct {
	ISBN            *string      `json:"isbn" binding:"omitempty,isbn"`
	Title           *string      `json:"title" binding:"omitempty,notblank,max=255"`
	PublicationDate *models.Date `json:"publicationDate"`
	Edition         *string      `json:"edition" binding:"omitempty,max=50"`
	Language        *string      `json:"language" binding:"omitempty,max=50"`
	PageCount       *int         `json:"pageCount" binding:"omitempty,min=1"`
	Description     *string      `json:"description"`
	ImageURI        *string      `json:"imageUri" binding:"omitempty,max=500"`
	PublisherID     *uuid.UUID   `json:"publisherId"`
	TotalCopies     *int         `json:"totalCopies" binding:"omitempty,min=1"`
	AuthorIDs       *[]uuid.UUID `json:"authorIds"`
	GenreIDs        *[]uuid.UUID `json:"genreIds"`
}

func (r bookRequest) input() services.BookInput {
	return services.BookInput{
		ISBN:            r.ISBN,
		Title:           r.Title,
		PublicationDate: r.PublicationDate,
		Edition:         r.Edition,
		Language:        r.Language,
		PageCount:       r.PageCount,
		Description:     r.Description,
		ImageURI:        r.ImageURI,
		PublisherID:     r.PublisherID,
		TotalCopies:     r.TotalCopies,
		AuthorIDs:       r.AuthorIDs,
		GenreIDs:        r.GenreIDs,
	}
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.catalog.ListBooks(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, valid := pathID(c, "id", "book")
	if !valid {
		return
	}
	book, err := h.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", book)
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req bookRequest
	if !bind(c, &req) {
		return
	}
	book, err := h.catalog.CreateBook(c.Request.Context(), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "book created", book)
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, valid := pathID(c, "id", "book")
	if !valid {
		return
	}
	var req bookRequest
	if !bind(c, &req) {
		return
	}
	book, err := h.catalog.UpdateBook(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "book updated", book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, valid := pathID(c, "id", "book")
	if !valid {
		return
	}
	if err := h.catalog.DeleteBook(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "book deleted", nil)
}

// ─── Authors ──────────────────────────────────────────────────────────────────

type authorRequest struct {
	FirstName   *string      `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName    *string      `json:"lastName" binding:"omitempty,notblank,max=100"`
	MiddleName  *string      `json:"middleName" binding:"omitempty,max=100"`
	BirthDate   *models.Date `json:"birthDate"`
	Nationality *string      `json:"nationality" binding:"omitempty,max=100"`
	Biography   *string      `json:"biography"`
}

func (r authorRequest) input() services.AuthorInput {
	return services.AuthorInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		MiddleName:  r.MiddleName,
		BirthDate:   r.BirthDate,
		Nationality: r.Nationality,
		Biography:   r.Biography,
	}
}

func (h *LibraryHandler) listAuthors(c *gin.Context) {
	authors, err := h.catalog.ListAuthors(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", authors)
}

func (h *LibraryHandler) getAuthor(c *gin.Context) {
	id, valid := pathID(c, "id", "author")
	if !valid {
		return
	}
	author, err := h.catalog.GetAuthor(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", author)
}

func (h *LibraryHandler) createAuthor(c *gin.Context) {
	var req authorRequest
	if !bind(c, &req) {
		return
	}
	author, err := h.catalog.CreateAuthor(c.Request.Context(), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "author created", author)
}

func (h *LibraryHandler) updateAuthor(c *gin.Context) {
	id, valid := pathID(c, "id", "author")
	if !valid {
		return
	}
	var req authorRequest
	if !bind(c, &req) {
		return
	}
	if err := h.catalog.UpdateAuthor(c.Request.Context(), id, req.input()); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "author updated", nil)
}

func (h *LibraryHandler) deleteAuthor(c *gin.Context) {
	id, valid := pathID(c, "id", "author")
	if !valid {
		return
	}
	if err := h.catalog.DeleteAuthor(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "author deleted", nil)
}

// ─── Genres ───────────────────────────────────────────────────────────────────

type genreRequest struct {
	Name        *string `json:"name" binding:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
}

func (h *LibraryHandler) listGenres(c *gin.Context) {
	genres, err := h.catalog.ListGenres(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", genres)
}

func (h *LibraryHandler) getGenre(c *gin.Context) {
	id, valid := pathID(c, "id", "genre")
	if !valid {
		return
	}
	genre, err := h.catalog.GetGenre(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", genre)
}

func (h *LibraryHandler) createGenre(c *gin.Context) {
	var req genreRequest
	if !bind(c, &req) {
		return
	}
	genre, err := h.catalog.CreateGenre(c.Request.Context(), services.GenreInput{Name: req.Name, Description: req.Description})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "genre created", genre)
}

func (h *LibraryHandler) updateGenre(c *gin.Context) {
	id, valid := pathID(c, "id", "genre")
	if !valid {
		return
	}
	var req genreRequest
	if !bind(c, &req) {
		return
	}
	if err := h.catalog.UpdateGenre(c.Request.Context(), id, services.GenreInput{Name: req.Name, Description: req.Description}); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "genre updated", nil)
}

func (h *LibraryHandler) deleteGenre(c *gin.Context) {
	id, valid := pathID(c, "id", "genre")
	if !valid {
		return
	}
	if err := h.catalog.DeleteGenre(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "genre deleted", nil)
}

// ─── Publishers ───────────────────────────────────────────────────────────────

type publisherRequest struct {
	Name    *string `json:"name" binding:"omitempty,notblank,max=255"`
	Address *string `json:"address" binding:"omitempty,max=255"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Website *string `json:"website" binding:"omitempty,url"`
}

func (r publisherRequest) input() services.PublisherInput {
	return services.PublisherInput{
		Name:    r.Name,
		Address: r.Address,
		Phone:   r.Phone,
		Email:   r.Email,
		Website: r.Website,
	}
}

func (h *LibraryHandler) listPublishers(c *gin.Context) {
	publishers, err := h.catalog.ListPublishers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", publishers)
}

func (h *LibraryHandler) getPublisher(c *gin.Context) {
	id, valid := pathID(c, "id", "publisher")
	if !valid {
		return
	}
	publisher, err := h.catalog.GetPublisher(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", publisher)
}

func (h *LibraryHandler) createPublisher(c *gin.Context) {
	var req publisherRequest
	if !bind(c, &req) {
		return
	}
	publisher, err := h.catalog.CreatePublisher(c.Request.Context(), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "publisher created", publisher)
}

func (h *LibraryHandler) updatePublisher(c *gin.Context) {
	id, valid := pathID(c, "id", "publisher")
	if !valid {
		return
	}
	var req publisherRequest
	if !bind(c, &req) {
		return
	}
	if err := h.catalog.UpdatePublisher(c.Request.Context(), id, req.input()); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "publisher updated", nil)
}

func (h *LibraryHandler) deletePublisher(c *gin.Context) {
	id, valid := pathID(c, "id", "publisher")
	if !valid {
		return
	}
	if err := h.catalog.DeletePublisher(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "publisher deleted", nil)
}
