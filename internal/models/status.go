package models

// DeriveStatus classifies a ledger row as of today. The stored Status column is
// ignored: a row with a return date is Returned, an open row past its due date is
// Overdue, and any other open row is Borrowed.
func DeriveStatus(b *Borrowing, today Date) BorrowingStatus {
	switch {
	case b.ReturnDate != nil:
		return BorrowingStatusReturned
	case b.DueDate.Before(today):
		return BorrowingStatusOverdue
	default:
		return BorrowingStatusBorrowed
	}
}

// ReturnStatus is the label recorded when a copy comes back on returnDate.
// A late return keeps the label Overdue.
func ReturnStatus(dueDate, returnDate Date) BorrowingStatus {
	if returnDate.After(dueDate) {
		return BorrowingStatusOverdue
	}
	return BorrowingStatusReturned
}

// DaysOverdue counts the days between the due date and either the return date or,
// for an open row, today. It is never negative.
func DaysOverdue(b *Borrowing, today Date) int {
	end := today
	if b.ReturnDate != nil {
		end = *b.ReturnDate
	}
	if days := end.DaysSince(b.DueDate); days > 0 {
		return days
	}
	return 0
}

// NextAvailableDate returns the earliest due date among the open borrowings of a
// book that has no copy on the shelf. It returns nil while a copy is available.
func NextAvailableDate(book *Book, borrowings []Borrowing) *Date {
	if book.AvailableCopies > 0 {
		return nil
	}
	var next *Date
	for i := range borrowings {
		b := &borrowings[i]
		if b.BookID != book.ID || !b.IsOpen() {
			continue
		}
		if next == nil || b.DueDate.Before(*next) {
			due := b.DueDate
			next = &due
		}
	}
	return next
}
