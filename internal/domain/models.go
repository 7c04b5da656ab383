// Package domain defines the payloads exchanged with the PawConnect backend:
// users and sessions, adoption/missing/donation posts, adoption requests,
// feedback and admin statistics. Field names follow the backend's JSON so
// values decode without mapping layers; the client only reads what it
// filters or displays.
package domain

import "strings"

// Role names as issued by the backend.
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"

	// Numeric role ids the backend seeds for the two roles.
	RoleAdminID int64 = 1
	RoleUserID  int64 = 2
)

// Role is one entry of a user's role set.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// JWTDTO carries the bearer credential returned by the sign-in endpoint.
type JWTDTO struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType,omitempty"`
}

// User is the public profile of an account.
//
// Fields:
//   - ID: backend identifier (required on every identity response).
//   - Name / Username / Email: display and login identifiers.
//   - Bio / Location / DP: optional profile fields (DP is a picture URL).
//   - Roles: role set used to derive admin/user flags.
//   - Banned: set by the admin ban operation.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	DP       string `json:"dp,omitempty"`
	Roles    []Role `json:"roles,omitempty"`
	Banned   bool   `json:"banned"`
}

// Session is the authenticated identity together with its bearer credential.
// It is what the sign-in endpoint returns and what the client persists.
type Session struct {
	User
	JWT JWTDTO `json:"jwtdto"`
}

// Token returns the bearer credential, or "" when none is held.
func (s Session) Token() string { return strings.TrimSpace(s.JWT.AccessToken) }

// PostUser is the compact owner reference embedded in posts and requests.
type PostUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AdoptionPost is a pet listed for adoption.
type AdoptionPost struct {
	ID                int64     `json:"id,omitempty"`
	Name              string    `json:"name"`
	Breed             string    `json:"breed"`
	Training          string    `json:"training"`
	Vaccine           string    `json:"vaccine"`
	Color             string    `json:"color"`
	Description       string    `json:"description"`
	PhysicalCondition string    `json:"physicalcondition"`
	ImageOne          string    `json:"imageone"`
	ImageTwo          string    `json:"imagetwo"`
	ImageThree        string    `json:"imagethree"`
	Location          string    `json:"location"`
	Behaviour         string    `json:"behaviour"`
	Food              string    `json:"food"`
	Gender            string    `json:"gender"`
	Type              string    `json:"type"`
	Availability      *bool     `json:"availability,omitempty"`
	Mobile            string    `json:"mobile"`
	PostedOn          string    `json:"postedon,omitempty"`
	User              *PostUser `json:"user,omitempty"`
}

// Available reports the availability flag, treating an absent flag as
// available.
func (p AdoptionPost) Available() bool { return p.Availability == nil || *p.Availability }

// MissingPost is a report of a missing pet.
type MissingPost struct {
	ID                  int64     `json:"id,omitempty"`
	Name                string    `json:"name"`
	Breed               string    `json:"breed"`
	Vaccine             string    `json:"vaccine"`
	Color               string    `json:"color"`
	DateMissing         string    `json:"datemissing"`
	SpecificAttribute   string    `json:"specificattribute"`
	Location            string    `json:"location"`
	AccessoriesLastWorn string    `json:"accessorieslastworn"`
	Image               string    `json:"image"`
	Rewards             string    `json:"rewards"`
	Gender              string    `json:"gender"`
	Type                string    `json:"type"`
	Found               bool      `json:"found,omitempty"`
	PostedOn            string    `json:"postedon,omitempty"`
	User                *PostUser `json:"user,omitempty"`
}

// MissingInfo is a sighting reported against a missing post. Sightings are
// shown publicly only after an admin approves them.
type MissingInfo struct {
	ID            int64     `json:"id,omitempty"`
	MissingPostID int64     `json:"missingPostId,omitempty"`
	Information   string    `json:"information"`
	Location      string    `json:"location"`
	Contact       string    `json:"contact,omitempty"`
	Approved      bool      `json:"approved"`
	PostedOn      string    `json:"postedon,omitempty"`
	User          *PostUser `json:"user,omitempty"`
}

// DonationPost is a fundraising or supplies campaign.
type DonationPost struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`    // money|food|supplies|emergency
	Urgency     string    `json:"urgency"` // urgent|normal
	Goal        float64   `json:"goal"`
	Raised      float64   `json:"raised"`
	Image       string    `json:"image"`
	PostedOn    string    `json:"postedon,omitempty"`
	User        *PostUser `json:"user,omitempty"`
}

// Donation is a single contribution to a donation post.
type Donation struct {
	ID             int64     `json:"id,omitempty"`
	DonationPostID int64     `json:"donationPostId,omitempty"`
	Amount         float64   `json:"amount"`
	Message        string    `json:"message,omitempty"`
	DonatedOn      string    `json:"donatedon,omitempty"`
	User           *PostUser `json:"user,omitempty"`
}

// AdoptionRequest is a user's request to adopt a listed pet.
type AdoptionRequest struct {
	ID       int64         `json:"id,omitempty"`
	Message  string        `json:"message"`
	Mobile   string        `json:"mobile,omitempty"`
	Approved bool          `json:"approved"`
	Post     *AdoptionPost `json:"adoption,omitempty"`
	User     *PostUser     `json:"user,omitempty"`
}

// FeedbackEntry is a contact/feedback submission. Name and Email are
// optional and omitted from the wire when blank.
type FeedbackEntry struct {
	ID             int64  `json:"id,omitempty"`
	Rating         int    `json:"rating"`
	Description    string `json:"description"`
	ContactPurpose string `json:"contactPurpose"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// AdminStats is the dashboard summary returned to administrators.
type AdminStats struct {
	TotalUsers            int64 `json:"totalUsers"`
	TotalAdoptionPosts    int64 `json:"totalAdoptionPosts"`
	TotalMissingPosts     int64 `json:"totalMissingPosts"`
	TotalDonationPosts    int64 `json:"totalDonationPosts"`
	TotalDonations        int64 `json:"totalDonations"`
	PendingRequests       int64 `json:"pendingAdoptionRequests"`
	PendingMissingInfo    int64 `json:"pendingMissingInformation"`
	BannedUsers           int64 `json:"bannedUsers"`
	TotalFeedbackReceived int64 `json:"totalFeedback"`
}

// Page is one page of a paginated listing as returned by the backend.
// Some endpoints report the page index as pageNo, others as currentPage.
type Page[T any] struct {
	Content       []T   `json:"content"`
	PageNo        int   `json:"pageNo"`
	CurrentPage   int   `json:"currentPage,omitempty"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// Number returns the zero-based page index whichever key carried it.
func (p Page[T]) Number() int {
	if p.PageNo == 0 && p.CurrentPage != 0 {
		return p.CurrentPage
	}
	return p.PageNo
}
