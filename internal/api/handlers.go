// internal/api/handlers.go
package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/storage/models"
)

// Curve and validity

type curveQuoteResponse struct {
	Supply          float64 `json:"supply"`
	Price           float64 `json:"price"`
	ProgressPercent float64 `json:"progress_percent"`
	MarketCap       float64 `json:"market_cap"`
	CurveLimit      float64 `json:"curve_limit"`
}

func (s *Server) curveQuote(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("supply")
	supply := 0.0
	if raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) {
			s.writeError(w, r, &badRequest{msg: "supply must be a number"})
			return
		}
		supply = v
	}

	cfg := s.svc.Pricer.Config()
	maxSupply := float64(cfg.MaxSupply)
	price := curve.ComputeSpotPrice(cfg.InitialPrice, maxSupply, cfg.CurveFraction, supply)
	counted := math.Max(supply, 0)
	if math.IsNaN(counted) {
		counted = 0
	}
	writeJSON(w, http.StatusOK, curveQuoteResponse{
		Supply:          counted,
		Price:           price,
		ProgressPercent: curve.ComputeCurveProgressPercent(maxSupply, cfg.CurveFraction, supply),
		MarketCap:       price * counted,
		CurveLimit:      s.svc.Pricer.Limit(),
	})
}

func (s *Server) proposalValidity(w http.ResponseWriter, r *http.Request) {
	var t governance.Tally
	if err := decodeJSON(w, r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, governance.Evaluate(t, s.svc.Governance.Policy()))
}

// Tokens

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Tokens.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var t models.Token
	if err := decodeJSON(w, r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.svc.Tokens.Create(r.Context(), &t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) linkExists(w http.ResponseWriter, r *http.Request) {
	exists, err := s.svc.Tokens.LinkExists(r.Context(), r.URL.Query().Get("link"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Tokens.Get(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) tokenQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.svc.Tokens.Quote(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type starRequest struct {
	UserAddress string `json:"user_address"`
}

func (s *Server) toggleStar(w http.ResponseWriter, r *http.Request) {
	var req starRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserAddress) == "" {
		s.writeError(w, r, &badRequest{msg: "user_address is required"})
		return
	}
	starred, err := s.svc.Tokens.ToggleStar(r.Context(), req.UserAddress, chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"starred": starred})
}

func (s *Server) starredTokens(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Tokens.Starred(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type commentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	TxHash string `json:"tx_hash"`
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Tokens.AddComment(r.Context(), chi.URLParam(r, "address"), req.Author, req.Body, req.TxHash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Tokens.Comments(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Proposals

func proposalID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &badRequest{msg: "invalid proposal id"}
	}
	return id, nil
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Governance.ListProposals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createProposal(w http.ResponseWriter, r *http.Request) {
	var in governance.NewProposal
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Governance.CreateProposal(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Governance.GetProposal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listVotes(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	votes, err := s.svc.Governance.ProposalVotes(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b governance.Ballot
	if err := decodeJSON(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	b.ProposalID = id
	vote, err := s.svc.Governance.CastVote(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

func (s *Server) verdict(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.svc.Governance.Verdict(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type adminRequest struct {
	AdminAddress  string `json:"admin_address"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

func (s *Server) closeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.svc.Governance.CloseProposal(r.Context(), req.AdminAddress, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) listWhitelist(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.Governance.Whitelist(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) addWhitelist(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Governance.AddToWhitelist(r.Context(), req.AdminAddress, id, req.WalletAddress); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeWhitelist(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Governance.RemoveFromWhitelist(r.Context(), req.AdminAddress, id, chi.URLParam(r, "wallet")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leaderboard and points

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind, err := leaderboard.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.Leaderboard.Get(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) refreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Leaderboard.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) chainLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := leaderboard.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, &badRequest{msg: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	traders, err := s.svc.Leaderboard.ChainTopTraders(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, traders)
}

func (s *Server) getPoints(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Points.Get(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) refreshPoints(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Points.Refresh(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
