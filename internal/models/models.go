package models

// CatColor is the closed colour enum shared by entities and filters.
type CatColor string

const (
	ColorBlack  CatColor = "BLACK"
	ColorWhite  CatColor = "WHITE"
	ColorGinger CatColor = "GINGER"
	ColorGray   CatColor = "GRAY"
	ColorMixed  CatColor = "MIXED"
)

func (c CatColor) Valid() bool {
	switch c {
	case ColorBlack, ColorWhite, ColorGinger, ColorGray, ColorMixed:
		return true
	}
	return false
}

// Cat is the cat-service entity. OwnerID is nullable (a cat may be
// ownerless) and Friends holds the ids of the symmetric friendship
// relation. Neither field is mutable through the generic update action.
type Cat struct {
	ID       int64    `json:"id,omitempty"`
	Name     string   `json:"name"`
	Birthday Date     `json:"birthday"`
	Breed    string   `json:"breed"`
	Color    CatColor `json:"color"`
	OwnerID  *int64   `json:"ownerId"`
	Friends  []int64  `json:"friends"`
}

// Owner holds no back-reference to its cats; the cat list is always
// reconstructed by querying the cat service.
type Owner struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Birthday Date   `json:"birthday"`
}

// OwnerWithCats is the gateway-side composed view of an owner and its cat
// ids. It is assembled per request and never persisted.
type OwnerWithCats struct {
	Owner
	Cats []int64 `json:"cats"`
}

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User links an authentication identity to at most one owner.
type User struct {
	ID           int64    `json:"id,omitempty"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	OwnerID      *int64   `json:"ownerId"`
}

// CatFilter is a conjunctive predicate over optional fields. A nil field
// imposes no constraint.
type CatFilter struct {
	OwnerID         *int64     `json:"ownerId,omitempty"`
	Colors          []CatColor `json:"colors,omitempty"`
	BirthdateAfter  *Date      `json:"birthdateAfter,omitempty"`
	BirthdateBefore *Date      `json:"birthdateBefore,omitempty"`
}

type OwnerFilter struct {
	BirthdayAfter  *Date `json:"birthdayAfter,omitempty"`
	BirthdayBefore *Date `json:"birthdayBefore,omitempty"`
}
