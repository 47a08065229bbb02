package service

import "errors"

var (
	// ErrNoCostBasis is returned when a sell is entered for a stock that has
	// no row in the cost-basis aggregate for the broker, meaning it was never
	// bought there.
	ErrNoCostBasis = errors.New("stock has not been bought yet")
	// ErrUnknownPortfolio marks a portfolio name missing from configuration;
	// callers log it and produce no output instead of failing.
	ErrUnknownPortfolio = errors.New("portfolio is not registered in configuration")
)
