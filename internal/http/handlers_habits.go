package http

import (
	"net/http"

	"lifedash/internal/session"
)

func (s *Server) habits(w http.ResponseWriter, r *http.Request) (*session.HabitSession, bool) {
	uid, ok := s.userID(w, r)
	if !ok {
		return nil, false
	}
	return s.sessions.Habits(sessionContext(r), uid), true
}

// handleGetHabits returns the viewed month, switching to ?year=&month= when given.
func (s *Server) handleGetHabits(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
	if !ok {
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), sess.Period())
	if err != nil {
		s.respond(w, r, "get_habits", nil, err)
		return
	}
	view := sess.View()
	if params.Set {
		p, err := params.Period()
		if err != nil {
			s.respond(w, r, "get_habits", nil, err)
			return
		}
		if p != view.Period {
			view = sess.Load(sessionContext(r), p)
		}
	}
	s.respond(w, r, "get_habits", view, nil)
}

func (s *Server) handleHabitMonth(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
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

func (s *Server) handleAddHabit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	goal, err := body.OptionalInt("goal", 0)
	if err != nil {
		s.respond(w, r, "add_habit", nil, err)
		return
	}
	view, err := sess.AddHabit(body.Get("name"), goal)
	s.respond(w, r, "add_habit", view, err)
}

func (s *Server) handleRemoveHabit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
	if !ok {
		return
	}
	index, err := PathIndex(r, "index")
	if err != nil {
		s.respond(w, r, "remove_habit", nil, err)
		return
	}
	view, err := sess.RemoveHabit(index)
	s.respond(w, r, "remove_habit", view, err)
}

func (s *Server) handleToggleHabitDay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	args, err := body.Ints("habit", "day")
	if err != nil {
		s.respond(w, r, "toggle_habit_day", nil, err)
		return
	}
	view, err := sess.ToggleHabitDay(args[0], args[1])
	s.respond(w, r, "toggle_habit_day", view, err)
}

func (s *Server) handleAdjustMental(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.habits(w, r)
	if !ok {
		return
	}
	body := s.body(w, r)
	if body == nil {
		return
	}
	args, err := body.Ints("metric", "day", "delta")
	if err != nil {
		s.respond(w, r, "adjust_mental_value", nil, err)
		return
	}
	view, err := sess.AdjustMentalValue(args[0], args[1], args[2])
	s.respond(w, r, "adjust_mental_value", view, err)
}
