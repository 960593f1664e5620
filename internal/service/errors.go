package service

import "errors"

// ErrInvalidInput возвращается при некорректных или неполных входных данных;
// обнаруживается до любой записи
var ErrInvalidInput = errors.New("invalid input")
