package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
	"github.com/example/route-scheduler/internal/internaltypes"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type requestBody struct {
	CustomerName string `json:"customerName"`
	Address      string `json:"address"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	ServiceType  string `json:"serviceType"`
}

func (b requestBody) toRequest() (booking.Request, error) {
	if strings.TrimSpace(b.Date) == "" {
		return booking.Request{}, errors.New("date is required")
	}
	date, err := booking.ParseDate(b.Date)
	if err != nil {
		return booking.Request{}, err
	}
	req := booking.Request{Address: b.Address, Date: date, ServiceType: b.ServiceType}
	if strings.TrimSpace(b.Time) != "" {
		c, err := booking.ParseClock(b.Time)
		if err != nil {
			return booking.Request{}, err
		}
		req.Time = &c
	}
	return req, nil
}

type scheduleBody struct {
	CustomerName   string `json:"customerName"`
	Address        string `json:"address"`
	ServiceType    string `json:"serviceType"`
	PreferredStart string `json:"preferredStart"`
	Book           bool   `json:"book"`
}

type bookingResponse struct {
	Verdict booking.Verdict  `json:"verdict"`
	Booking *booking.Booking `json:"booking,omitempty"`
}

type scheduleResponse struct {
	Result    booking.SchedulingResult `json:"result"`
	HoldToken string                   `json:"holdToken,omitempty"`
	ExpiresAt *time.Time               `json:"expiresAt,omitempty"`
	Booking   *booking.Booking         `json:"booking,omitempty"`
}

type dayResponse struct {
	Date      string            `json:"date"`
	Count     int               `json:"count"`
	Capacity  int               `json:"capacity"`
	Remaining int               `json:"remaining"`
	IsFull    bool              `json:"isFull"`
	Anchor    *booking.Booking  `json:"anchor,omitempty"`
	Bookings  []booking.Booking `json:"bookings"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if !decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := s.Bookings.Engine.Validate(r.Context(), req)
	writeJSON(w, s.verdictStatus(v, http.StatusOK), v)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if !decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, b, err := s.Bookings.Create(r.Context(), body.CustomerName, req)
	if err != nil {
		s.Log.Error("create booking", zap.Error(err))
		writeErr(w, err)
		return
	}
	if b == nil {
		writeJSON(w, s.verdictStatus(v, http.StatusUnprocessableEntity), bookingResponse{Verdict: v})
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Verdict: v, Booking: b})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var body scheduleBody
	if !decode(w, r, &body) {
		return
	}
	var start *time.Time
	if strings.TrimSpace(body.PreferredStart) != "" {
		d, err := booking.ParseDate(body.PreferredStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start = &d
	}

	if body.Book {
		res, b, err := s.Bookings.ScheduleAndBook(r.Context(), body.CustomerName, body.Address, body.ServiceType, start)
		if err != nil {
			s.Log.Error("schedule and book", zap.Error(err))
			writeErr(w, err)
			return
		}
		if b == nil {
			writeJSON(w, s.resultStatus(res), scheduleResponse{Result: res})
			return
		}
		writeJSON(w, http.StatusCreated, scheduleResponse{Result: res, Booking: b})
		return
	}

	res, token, err := s.Bookings.Schedule(r.Context(), body.CustomerName, body.Address, body.ServiceType, start)
	if err != nil {
		s.Log.Error("schedule", zap.Error(err))
		writeErr(w, err)
		return
	}
	if !res.Success {
		writeJSON(w, s.resultStatus(res), scheduleResponse{Result: res})
		return
	}
	out := scheduleResponse{Result: res, HoldToken: token}
	if token != "" {
		exp := time.Now().UTC().Add(s.Bookings.Holds.TTL())
		out.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HoldToken string `json:"holdToken"`
	}
	if !decode(w, r, &body) {
		return
	}
	v, b, err := s.Bookings.Confirm(r.Context(), body.HoldToken)
	if err != nil {
		if !errors.Is(err, internaltypes.ErrInvalidHold) {
			s.Log.Error("confirm hold", zap.Error(err))
		}
		writeErr(w, err)
		return
	}
	if b == nil {
		writeJSON(w, s.verdictStatus(v, http.StatusConflict), bookingResponse{Verdict: v})
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Verdict: v, Booking: b})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	var err error
	switch {
	case q.Get("date") != "":
		from, err = booking.ParseDate(q.Get("date"))
		to = from
	case q.Get("from") != "" && q.Get("to") != "":
		from, err = booking.ParseDate(q.Get("from"))
		if err == nil {
			to, err = booking.ParseDate(q.Get("to"))
		}
	default:
		err = errors.New("pass date or both from and to")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.Bookings.List(r.Context(), from, to)
	if err != nil {
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Log.Error("list bookings", zap.Error(err))
		writeErr(w, err)
		return
	}
	if out == nil {
		out = []booking.Booking{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := s.Bookings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := booking.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := s.Bookings.Day(r.Context(), date)
	if err != nil {
		s.Log.Error("load day", zap.Error(err))
		writeErr(w, err)
		return
	}
	bookings := day.Bookings
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Date:      booking.FormatDate(day.Date),
		Count:     day.Count,
		Capacity:  day.Capacity,
		Remaining: day.Remaining(),
		IsFull:    day.IsFull,
		Anchor:    day.Anchor,
		Bookings:  bookings,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	s.finish(w, s.Bookings.Cancel(r.Context(), r.PathValue("id"), body.Reason))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.finish(w, s.Bookings.Complete(r.Context(), r.PathValue("id")))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.finish(w, s.Bookings.Delete(r.Context(), r.PathValue("id")))
}

func (s *Server) finish(w http.ResponseWriter, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verdictStatus maps a verdict to a status. Policy rejections and unknown
// addresses use fallback; provider or store failures are a bad gateway.
func (s *Server) verdictStatus(v booking.Verdict, fallback int) int {
	if v.Valid {
		return http.StatusOK
	}
	if err := v.Err(); err != nil && !errors.Is(err, geo.ErrAddressNotFound) {
		s.Log.Error("validation failed", zap.String("reason", string(v.Reason)), zap.Error(err))
		return http.StatusBadGateway
	}
	return fallback
}

func (s *Server) resultStatus(res booking.SchedulingResult) int {
	if err := res.Err(); err != nil && !errors.Is(err, geo.ErrAddressNotFound) {
		s.Log.Error("auto-schedule failed", zap.Error(err))
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internaltypes.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, internaltypes.ErrNotScheduled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, internaltypes.ErrInvalidHold):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, internaltypes.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, internaltypes.ErrDayFull), errors.Is(err, internaltypes.ErrAnchorTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
