package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"saiblibrary/internal/models"
)

// Options carries the ambient dependencies shared by every service.
type Options struct {
	Logger     *slog.Logger
	FinePerDay decimal.Decimal
	BcryptCost int
	// Now is the clock used for "today"; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	return o
}

func (o Options) today() models.Date {
	return models.NewDate(o.Now())
}
