// internal/api/errors.go
package api

import (
	"errors"
	"net/http"

	"github.com/memelaunch/launchpad/internal/admin"
	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/tokens"
	"go.uber.org/zap"
)

type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

var statusTable = []struct {
	err    error
	status int
}{
	{admin.ErrNotAdmin, http.StatusForbidden},
	{governance.ErrInsufficientHolding, http.StatusForbidden},

	{tokens.ErrTokenNotFound, http.StatusNotFound},
	{governance.ErrProposalNotFound, http.StatusNotFound},
	{leaderboard.ErrUnknownKind, http.StatusNotFound},

	{tokens.ErrLinkExists, http.StatusConflict},
	{tokens.ErrTokenExists, http.StatusConflict},
	{governance.ErrAlreadyVoted, http.StatusConflict},
	{governance.ErrProposalClosed, http.StatusConflict},
	{governance.ErrVotingEnded, http.StatusConflict},
	{chain.ErrTxPending, http.StatusConflict},
	{chain.ErrFeeAlreadyUsed, http.StatusConflict},

	{chain.ErrFeeNotPaid, http.StatusPaymentRequired},
	{chain.ErrTxFailed, http.StatusPaymentRequired},

	{tokens.ErrInvalidToken, http.StatusBadRequest},
	{tokens.ErrEmptyComment, http.StatusBadRequest},
	{governance.ErrInvalidProposal, http.StatusBadRequest},
	{governance.ErrInvalidChoice, http.StatusBadRequest},
	{chain.ErrInvalidAddress, http.StatusBadRequest},
	{chain.ErrInvalidTxHash, http.StatusBadRequest},

	{chain.ErrOffline, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	var br *badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	var chainErr *chain.Error
	if errors.As(err, &chainErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
