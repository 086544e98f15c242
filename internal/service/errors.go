package service

import (
	"errors"

	"github.com/songifi/lyricsflip-matchmaker/internal/matchmaking"
	"github.com/songifi/lyricsflip-matchmaker/internal/repository"
)

// Common service errors
var (
	ErrInvalidRequest = errors.New("invalid matchmaking request")
	ErrInvalidStatus  = errors.New("invalid game session status")
)

// Matchmaking errors surfaced to handlers
var (
	ErrDuplicateRequest = matchmaking.ErrDuplicateRequest
	ErrNotQueued        = matchmaking.ErrNotQueued
	ErrSessionNotFound  = repository.ErrSessionNotFound
)
