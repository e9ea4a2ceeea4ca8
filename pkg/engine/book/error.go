package book

import "errors"

var ErrOrderNotFound = errors.New("order not found in book")
