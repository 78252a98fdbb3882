package models

import (
	"regexp"
	"time"
)

// Domain models shared by the HTTP layer and the record stores.

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	FirstName    string    `json:"firstName" bson:"first_name"`
	LastName     string    `json:"lastName" bson:"last_name"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

type Source string

const (
	SourceWebsite     Source = "website"
	SourceFacebookAds Source = "facebook_ads"
	SourceGoogleAds   Source = "google_ads"
	SourceReferral    Source = "referral"
	SourceEvents      Source = "events"
	SourceOther       Source = "other"
)

var Sources = []Source{SourceWebsite, SourceFacebookAds, SourceGoogleAds, SourceReferral, SourceEvents, SourceOther}

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusWon       Status = "won"
)

var Statuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon}

// Lead is a sales prospect owned by exactly one user. The (OwnerID, Email)
// pair is unique.
type Lead struct {
	ID             string     `json:"_id" bson:"_id"`
	OwnerID        string     `json:"ownerId" bson:"owner_id"`
	FirstName      string     `json:"firstName" bson:"first_name"`
	LastName       string     `json:"lastName" bson:"last_name"`
	Email          string     `json:"email" bson:"email"`
	Phone          string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Company        string     `json:"company,omitempty" bson:"company,omitempty"`
	City           string     `json:"city,omitempty" bson:"city,omitempty"`
	State          string     `json:"state,omitempty" bson:"state,omitempty"`
	Source         Source     `json:"source" bson:"source"`
	Status         Status     `json:"status" bson:"status"`
	Score          int        `json:"score" bson:"score"`
	LeadValue      *float64   `json:"leadValue,omitempty" bson:"lead_value,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty" bson:"last_activity_at,omitempty"`
	IsQualified    bool       `json:"isQualified" bson:"is_qualified"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}

func (s Source) Valid() bool {
	for _, v := range Sources {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)*\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s looks like a deliverable address. It expects
// an already trimmed value.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }
