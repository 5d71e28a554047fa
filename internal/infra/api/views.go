package api

import (
	"encoding/json"
	"time"

	"svmedia/internal/domain/model"
)

type codeView struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	IsUsed      bool            `json:"is_used"`
	CreatedAt   time.Time       `json:"created_at"`
	UsedAt      *time.Time      `json:"used_at"`
	UsedBy      *string         `json:"used_by"`
	UsageData   json.RawMessage `json:"usage_data"`
	FullName    *string         `json:"full_name"`
	SquadNumber int             `json:"squad_number"`
	ShiftNumber int             `json:"shift_number"`
	CreatedByID string          `json:"created_by_id"`
	BatchID     string          `json:"batch_id"`
}

func toCodeView(c *model.AccessCode) codeView {
	v := codeView{
		ID:          c.ID,
		Code:        c.Code,
		IsUsed:      c.IsUsed,
		CreatedAt:   c.CreatedAt,
		UsedAt:      c.UsedAt,
		UsedBy:      c.UsedBy,
		FullName:    c.FullName,
		SquadNumber: c.SquadNumber,
		ShiftNumber: c.ShiftNumber,
		CreatedByID: c.CreatedByID,
		BatchID:     c.BatchID,
	}
	if len(c.UsageData) > 0 {
		v.UsageData = c.UsageData
	}
	return v
}

func toCodeViews(cs []*model.AccessCode) []codeView {
	out := make([]codeView, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCodeView(c))
	}
	return out
}

type codePageView struct {
	Items []codeView `json:"items"`
	Total int        `json:"total"`
	Skip  int        `json:"skip"`
	Limit int        `json:"limit"`
}

type squadView struct {
	SquadNumber int        `json:"squad_number"`
	Promocodes  []codeView `json:"promocodes"`
}

type shiftView struct {
	ShiftNumber int         `json:"shift_number"`
	Squads      []squadView `json:"squads"`
}

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, IsActive: u.IsActive, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

type tokenView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type objectView struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type totalFolderView struct {
	ShiftNumber int          `json:"shift_number"`
	TotalFiles  int          `json:"total_files"`
	Files       []objectView `json:"files"`
}
