package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"svmedia/internal/config"
	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/infra/logging"
	"svmedia/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		res := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				res[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			res[name] = "ok"
		}
		res["status"] = "ok"
		if status != http.StatusOK {
			res["status"] = "degraded"
		}
		writeJSON(w, status, res)
	}
}

// ---- users ----

// loginHandler accepts the OAuth2 password form (username/password) or a
// JSON body with email/password.
func loginHandler(uc usecase.AuthUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var email, password string
		if isJSON(r) {
			var body struct {
				Email    string `json:"email"`
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := decodeJSON(w, r, &body); err != nil {
				writeError(w, r, log, err)
				return
			}
			email, password = body.Email, body.Password
			if email == "" {
				email = body.Username
			}
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				writeError(w, r, log, domain.ErrInvalidArgument)
				return
			}
			email, password = r.PostForm.Get("username"), r.PostForm.Get("password")
		}
		tok, err := uc.Login(r.Context(), email, password)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenView{AccessToken: tok, TokenType: "bearer"})
	}
}

func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := Principal(r.Context())
		writeJSON(w, http.StatusOK, toUserView(u))
	}
}

func createUserHandler(uc usecase.AuthUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			IsAdmin  bool   `json:"is_admin"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		u, err := uc.CreateUser(r.Context(), body.Email, body.Password, body.IsAdmin)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserView(u))
	}
}

// ---- codes ----

func generateHandler(uc usecase.CodeUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		count, err1 := positiveInt(q.Get("count"))
		squad, err2 := positiveInt(q.Get("squad_number"))
		shift, err3 := positiveInt(q.Get("shift_number"))
		if err := errors.Join(err1, err2, err3); err != nil {
			writeError(w, r, log, domain.ErrInvalidArgument)
			return
		}
		issuer, _ := Principal(r.Context())
		codes, err := uc.Generate(r.Context(), count, model.Scope{Shift: shift, Squad: squad}, issuer)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCodeViews(codes))
	}
}

func listCodesHandler(uc usecase.CodeUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := model.CodeFilter{Search: q.Get("search")}
		var err error
		if v := q.Get("skip"); v != "" {
			if f.Offset, err = strconv.Atoi(v); err != nil {
				writeError(w, r, log, domain.ErrInvalidArgument)
				return
			}
		}
		if v := q.Get("limit"); v != "" {
			if f.Limit, err = strconv.Atoi(v); err != nil {
				writeError(w, r, log, domain.ErrInvalidArgument)
				return
			}
		}
		if v := q.Get("is_used"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, r, log, domain.ErrInvalidArgument)
				return
			}
			f.IsUsed = &b
		}
		page, err := uc.List(r.Context(), f)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, codePageView{
			Items: toCodeViews(page.Items),
			Total: page.Total,
			Skip:  page.Offset,
			Limit: page.Limit,
		})
	}
}

func usageHandler(uc usecase.CodeUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := uc.Usage(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toCodeView(c))
	}
}

func shiftCodesHandler(uc usecase.CodeUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shift, err := positiveInt(chi.URLParam(r, "shift"))
		if err != nil {
			writeError(w, r, log, domain.ErrInvalidArgument)
			return
		}
		groups, err := uc.ShiftCodes(r.Context(), shift)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		out := shiftView{ShiftNumber: shift, Squads: make([]squadView, 0, len(groups))}
		for _, g := range groups {
			out.Squads = append(out.Squads, squadView{SquadNumber: g.SquadNumber, Promocodes: toCodeViews(g.Codes)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func printShiftHandler(uc usecase.CodeUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shift, err := positiveInt(chi.URLParam(r, "shift"))
		if err != nil {
			writeError(w, r, log, domain.ErrInvalidArgument)
			return
		}
		text, err := uc.PrintableShift(r.Context(), shift)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
	}
}

// redeemHandler consumes the code and then delivers the scope's photos in the
// configured archive mode. The code stays consumed when delivery fails.
func (s *Server) redeemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form model.RedemptionForm
		if err := decodeJSON(w, r, &form); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		code := chi.URLParam(r, "code")
		scope, err := s.codes.Redeem(r.Context(), code, form, clientIP(r))
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}

		switch s.archives.Mode() {
		case config.ArchiveModePresigned:
			links, err := s.archives.Links(r.Context(), scope)
			if err != nil {
				writeError(w, r, s.log, err)
				return
			}
			writeJSON(w, http.StatusOK, links)
		case config.ArchiveModeBuffered:
			a, err := s.archives.Assemble(r.Context(), scope)
			if err != nil {
				writeError(w, r, s.log, err)
				return
			}
			setAttachment(w, a.Filename)
			w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(a.Body)
		default:
			s.stream(w, r, scope)
		}
	}
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, scope model.Scope) {
	opened := false
	err := s.archives.Stream(r.Context(), scope, func(filename string) io.Writer {
		opened = true
		setAttachment(w, filename)
		w.WriteHeader(http.StatusOK)
		return w
	})
	if err == nil {
		return
	}
	if !opened {
		writeError(w, r, s.log, err)
		return
	}
	// Headers are gone; abort so the client sees a truncated transfer.
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Msg("archive stream aborted")
	panic(http.ErrAbortHandler)
}

// ---- media ----

func checkTotalHandler(uc usecase.ArchiveUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shift, err := positiveInt(chi.URLParam(r, "shift"))
		if err != nil {
			writeError(w, r, log, domain.ErrInvalidArgument)
			return
		}
		objs, err := uc.ListShared(r.Context(), shift)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		out := totalFolderView{ShiftNumber: shift, TotalFiles: len(objs), Files: make([]objectView, 0, len(objs))}
		for _, o := range objs {
			out.Files = append(out.Files, objectView{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ---- helpers ----

func setAttachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return n, nil
}

// clientIP is the host part of RemoteAddr, which middleware.RealIP has
// already replaced with a forwarded address when one was sent.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
