package http

import (
	"net/http"

	"lifedash/internal/core"
	"lifedash/internal/session"
)

func (s *Server) finance(w http.ResponseWriter, r *http.Request) (*session.FinanceSession, bool) {
	uid, ok := s.userID(w, r)
	if !ok {
		return nil, false
	}
	return s.sessions.Finance(sessionContext(r), uid), true
}

func (s *Server) handleGetFinance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.finance(w, r)
	if !ok {
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), sess.Period())
	if err != nil {
		s.respond(w, r, "get_finance", nil, err)
		return
	}
	view := sess.View()
	if params.Set {
		p, err := params.Period()
		if err != nil {
			s.respond(w, r, "get_finance", nil, err)
			return
		}
		if p != view.Period {
			view = sess.Load(sessionContext(r), p)
		}
	}
	s.respond(w, r, "get_finance", view, nil)
}

func (s *Server) handleFinanceMonth(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.finance(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	delta, err := body.MonthDelta()
	if err != nil {
		s.respond(w, r, "change_month", nil, err)
		return
	}
	s.respond(w, r, "change_month", sess.ChangeMonth(sessionContext(r), delta), nil)
}

// handleAddEntry reads plan and actual leniently; missing or non-numeric amounts are 0.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.finance(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	c, err := core.ParseCategory(body.Get("category"))
	if err != nil {
		s.respond(w, r, "add_ledger_entry", nil, err)
		return
	}
	view, err := sess.AddLedgerEntry(c, body.Get("source"), body.Amount("plan"), body.Amount("actual"))
	s.respond(w, r, "add_ledger_entry", view, err)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.finance(w, r)
	if !ok {
		return
	}
	c, err := core.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.respond(w, r, "remove_ledger_entry", nil, err)
		return
	}
	index, err := PathIndex(r, "index")
	if err != nil {
		s.respond(w, r, "remove_ledger_entry", nil, err)
		return
	}
	view, err := sess.RemoveLedgerEntry(c, index)
	s.respond(w, r, "remove_ledger_entry", view, err)
}

func (s *Server) handleSetStartingAmount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.finance(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	view, err := sess.SetStartingAmount(body.Amount("value"))
	s.respond(w, r, "set_starting_amount", view, err)
}
