package storerrros

import "errors"

var (
	ErrUserExists      = errors.New("user alredy exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrBookNotFound = errors.New("book does not exists")
	ErrAlreadyRated = errors.New("you have already rated this book")
)
