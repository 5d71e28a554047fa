package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"svmedia/internal/domain"
)

// AccessCode is a single-use code that unlocks the photos of one shift/squad pair.
type AccessCode struct {
	ID          string
	Code        string
	IsUsed      bool
	CreatedAt   time.Time
	UsedAt      *time.Time // Pointer to allow for NULL
	UsedBy      *string    // remote address of the redeemer
	CreatedByID string
	BatchID     string
	SquadNumber int
	ShiftNumber int
	FullName    *string
	UsageData   json.RawMessage // nil until redeemed
}

// Scope returns the shift/squad pair the code is bound to.
func (c *AccessCode) Scope() Scope {
	return Scope{Shift: c.ShiftNumber, Squad: c.SquadNumber}
}

// Scope is the (shift, squad) pair that gates which object prefixes a code unlocks.
type Scope struct {
	Shift int
	Squad int
}

func (s Scope) Valid() bool { return s.Shift > 0 && s.Squad > 0 }

// RedemptionForm is what the end user submits together with a code.
// Shift and Group arrive as strings from the web form.
type RedemptionForm struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Shift     string `json:"shift"`
	Group     string `json:"group"`
	Promocode string `json:"promocode"`
	Agree     bool   `json:"agree"`
}

// Scope parses the submitted shift and group into a Scope.
func (f RedemptionForm) Scope() (Scope, error) {
	shift, err := strconv.Atoi(strings.TrimSpace(f.Shift))
	if err != nil {
		return Scope{}, domain.ErrInvalidArgument
	}
	squad, err := strconv.Atoi(strings.TrimSpace(f.Group))
	if err != nil {
		return Scope{}, domain.ErrInvalidArgument
	}
	s := Scope{Shift: shift, Squad: squad}
	if !s.Valid() {
		return Scope{}, domain.ErrInvalidArgument
	}
	return s, nil
}

// FullName joins given and family name the way it is stored on the code.
func (f RedemptionForm) FullName() string {
	return strings.TrimSpace(f.Name) + " " + strings.TrimSpace(f.Surname)
}

// Validate checks the fields a redemption cannot proceed without.
func (f RedemptionForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Surname) == "" {
		return domain.ErrInvalidArgument
	}
	if !f.Agree {
		return domain.ErrInvalidArgument
	}
	_, err := f.Scope()
	return err
}

// CodeFilter narrows admin listings of access codes.
type CodeFilter struct {
	Search string
	IsUsed *bool
	Offset int
	Limit  int
}

// CodePage is one page of a filtered listing plus the total match count.
type CodePage struct {
	Items  []*AccessCode
	Total  int
	Offset int
	Limit  int
}

// SquadCodes groups the codes of one squad within a shift.
type SquadCodes struct {
	SquadNumber int
	Codes       []*AccessCode
}
