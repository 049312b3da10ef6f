package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	publisher, err := f.catalog.CreatePublisher(ctx, PublisherInput{Name: ptr("Ace Books")})
	require.NoError(t, err)
	author, err := f.catalog.CreateAuthor(ctx, AuthorInput{FirstName: ptr("Ursula"), LastName: ptr("Le Guin")})
	require.NoError(t, err)
	genre, err := f.catalog.CreateGenre(ctx, GenreInput{Name: ptr("Science Fiction")})
	require.NoError(t, err)

	book, err := f.catalog.CreateBook(ctx, BookInput{
		ISBN:        ptr("9780441478125"),
		Title:       ptr("The Left Hand of Darkness"),
		PublisherID: &publisher.ID,
		AuthorIDs:   &[]uuid.UUID{author.ID},
		GenreIDs:    &[]uuid.UUID{genre.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, book.TotalCopies)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Equal(t, "English", book.Language)
	require.NotNil(t, book.Publisher)
	assert.Equal(t, "Ace Books", book.Publisher.Name)
	require.Len(t, book.Authors, 1)
	require.Len(t, book.Genres, 1)

	t.Run("duplicate isbn", func(t *testing.T) {
		_, err := f.catalog.CreateBook(ctx, BookInput{ISBN: ptr("9780441478125"), Title: ptr("Again")})
		require.ErrorIs(t, err, ErrDuplicateISBN)
	})
	t.Run("missing title", func(t *testing.T) {
		_, err := f.catalog.CreateBook(ctx, BookInput{ISBN: ptr("9780000000001")})
		require.ErrorIs(t, err, MissingField(""))
	})
	t.Run("zero copies", func(t *testing.T) {
		_, err := f.catalog.CreateBook(ctx, BookInput{ISBN: ptr("9780000000002"), Title: ptr("x"), TotalCopies: ptr(0)})
		assert.Equal(t, KindInvalidArgument, KindOf(err))
	})
	t.Run("unknown author", func(t *testing.T) {
		_, err := f.catalog.CreateBook(ctx, BookInput{ISBN: ptr("9780000000003"), Title: ptr("x"), AuthorIDs: &[]uuid.UUID{uuid.New()}})
		require.ErrorIs(t, err, ErrAuthorNotFound)
	})

	t.Run("author view lists the book", func(t *testing.T) {
		view, err := f.catalog.GetAuthor(ctx, author.ID)
		require.NoError(t, err)
		require.Len(t, view.Books, 1)
		assert.Equal(t, book.ID, view.Books[0].ID)
	})
	t.Run("linked entries cannot be deleted", func(t *testing.T) {
		require.ErrorIs(t, f.catalog.DeleteAuthor(ctx, author.ID), ErrAuthorInUse)
		require.ErrorIs(t, f.catalog.DeleteGenre(ctx, genre.ID), ErrGenreInUse)
		require.ErrorIs(t, f.catalog.DeletePublisher(ctx, publisher.ID), ErrPublisherInUse)
	})
}

func TestUpdateBook_TotalCopiesRederivesAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.book(t, 3)
	f.checkout(t, book.ID, f.member(t, true).ID, "2024-06-01")
	f.checkout(t, book.ID, f.member(t, true).ID, "2024-06-01")

	updated, err := f.catalog.UpdateBook(ctx, book.ID, BookInput{TotalCopies: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 3, updated.AvailableCopies)
	f.assertCounter(t, book.ID)

	updated, err = f.catalog.UpdateBook(ctx, book.ID, BookInput{TotalCopies: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCopies)
	f.assertCounter(t, book.ID)

	_, err = f.catalog.UpdateBook(ctx, book.ID, BookInput{TotalCopies: ptr(1)})
	require.ErrorIs(t, err, ErrCopiesBelowOpen)
	f.assertCounter(t, book.ID)

	updated, err = f.catalog.UpdateBook(ctx, book.ID, BookInput{Title: ptr("A Wizard of Earthsea")})
	require.NoError(t, err)
	assert.Equal(t, "A Wizard of Earthsea", updated.Title)
	assert.Equal(t, 2, updated.TotalCopies)

	_, err = f.catalog.UpdateBook(ctx, uuid.New(), BookInput{Title: ptr("x")})
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestGetBook_NextAvailableDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.book(t, 2)

	view, err := f.catalog.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, view.NextAvailableDate)
	assert.Equal(t, 0, view.BorrowedCopies)

	f.checkout(t, book.ID, f.member(t, true).ID, "2024-06-10")
	f.checkout(t, book.ID, f.member(t, true).ID, "2024-06-03")

	view, err = f.catalog.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.BorrowedCopies)
	require.NotNil(t, view.NextAvailableDate)
	assert.Equal(t, date(t, "2024-06-03"), *view.NextAvailableDate)

	books, err := f.catalog.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.NotNil(t, books[0].NextAvailableDate)
	assert.Equal(t, "2024-06-03", books[0].NextAvailableDate.String())
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.book(t, 1)
	borrowing := f.checkout(t, book.ID, f.member(t, true).ID, "2024-06-01")

	require.ErrorIs(t, f.catalog.DeleteBook(ctx, book.ID), ErrBookHasOpenBorrowings)

	_, err := f.borrowings.Return(ctx, borrowing.ID, ReturnInput{})
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteBook(ctx, book.ID))

	_, err = f.catalog.GetBook(ctx, book.ID)
	require.ErrorIs(t, err, ErrBookNotFound)
	_, err = f.borrowings.Get(ctx, borrowing.ID)
	require.ErrorIs(t, err, ErrBorrowingNotFound)
}

func TestAuthorGenrePublisherCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author, err := f.catalog.CreateAuthor(ctx, AuthorInput{FirstName: ptr("Octavia"), LastName: ptr("Butler")})
	require.NoError(t, err)
	require.NoError(t, f.catalog.UpdateAuthor(ctx, author.ID, AuthorInput{Nationality: ptr("American")}))
	view, err := f.catalog.GetAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "American", *view.Nationality)
	assert.Empty(t, view.Books)
	require.ErrorIs(t, f.catalog.UpdateAuthor(ctx, author.ID, AuthorInput{}), MissingField(""))
	require.NoError(t, f.catalog.DeleteAuthor(ctx, author.ID))
	require.ErrorIs(t, f.catalog.DeleteAuthor(ctx, author.ID), ErrAuthorNotFound)

	genre, err := f.catalog.CreateGenre(ctx, GenreInput{Name: ptr("Fantasy")})
	require.NoError(t, err)
	require.NoError(t, f.catalog.UpdateGenre(ctx, genre.ID, GenreInput{Description: ptr("dragons")}))
	genres, err := f.catalog.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 1)
	assert.Equal(t, "dragons", *genres[0].Description)
	require.ErrorIs(t, f.catalog.UpdateGenre(ctx, uuid.New(), GenreInput{Name: ptr("x")}), ErrGenreNotFound)
	require.NoError(t, f.catalog.DeleteGenre(ctx, genre.ID))

	publisher, err := f.catalog.CreatePublisher(ctx, PublisherInput{Name: ptr("Tor")})
	require.NoError(t, err)
	require.NoError(t, f.catalog.UpdatePublisher(ctx, publisher.ID, PublisherInput{Website: ptr("https://tor.com")}))
	pv, err := f.catalog.GetPublisher(ctx, publisher.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://tor.com", *pv.Website)
	require.NoError(t, f.catalog.DeletePublisher(ctx, publisher.ID))
	_, err = f.catalog.GetPublisher(ctx, publisher.ID)
	require.ErrorIs(t, err, ErrPublisherNotFound)
}
