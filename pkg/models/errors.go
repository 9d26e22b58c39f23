// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
	"net/http"
)

var (
	ErrAlreadyQueued           = errors.New("player is already queued for this game kind")
	ErrAlreadyInSession        = errors.New("player already has an active session")
	ErrNotYourTurn             = errors.New("not your turn")
	ErrSessionNotActive        = errors.New("session is not active")
	ErrSessionAlreadyTerminal  = errors.New("session is already terminal")
	ErrSessionNotFound         = errors.New("session not found")
	ErrNotParticipant          = errors.New("player is not a participant of the session")
	ErrRatingPersistenceFailed = errors.New("rating persistence failed")
	ErrEvaluatorUnavailable    = errors.New("game evaluator unavailable")
	ErrInvalidRequest          = errors.New("invalid request")
)

var errorCodeMap = map[error]int{
	ErrAlreadyQueued:           510301,
	ErrAlreadyInSession:        510302,
	ErrNotYourTurn:             510303,
	ErrSessionNotActive:        510304,
	ErrSessionAlreadyTerminal:  510305,
	ErrSessionNotFound:         510306,
	ErrNotParticipant:          510307,
	ErrRatingPersistenceFailed: 510308,
	ErrEvaluatorUnavailable:    510309,
	ErrInvalidRequest:          20002,
}

var httpStatusMap = map[error]int{
	ErrAlreadyQueued:           http.StatusBadRequest,
	ErrNotYourTurn:             http.StatusBadRequest,
	ErrSessionNotActive:        http.StatusBadRequest,
	ErrNotParticipant:          http.StatusBadRequest,
	ErrInvalidRequest:          http.StatusBadRequest,
	ErrSessionNotFound:         http.StatusNotFound,
	ErrSessionAlreadyTerminal:  http.StatusConflict,
	ErrAlreadyInSession:        http.StatusConflict,
	ErrEvaluatorUnavailable:    http.StatusServiceUnavailable,
	ErrRatingPersistenceFailed: http.StatusServiceUnavailable,
}

// ErrorCode returns a code for the error, unwrapping as needed.
// It returns 20001 (internal error) if the error is not registered in the map.
func ErrorCode(err error) int {
	for known, code := range errorCodeMap {
		if errors.Is(err, known) {
			return code
		}
	}
	return 20001
}

// HTTPStatus maps an error onto the status code of the http api.
func HTTPStatus(err error) int {
	for known, status := range httpStatusMap {
		if errors.Is(err, known) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether the caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEvaluatorUnavailable) || errors.Is(err, ErrRatingPersistenceFailed)
}
