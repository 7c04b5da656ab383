package store

import (
	"encoding/json"

	"github.com/tbourn/pawconnect/internal/domain"
)

// Resetter is implemented by every Slice.
type Resetter interface {
	Reset()
	Name() string
}

// Ack is the payload of operations whose answer only confirms them
// (delete, verify, password reset, ban); it keeps the raw answer.
type Ack = json.RawMessage

type (
	AdoptionPage = domain.Page[domain.AdoptionPost]
	MissingPage  = domain.Page[domain.MissingPost]
	DonationPage = domain.Page[domain.DonationPost]
	UserPage     = domain.Page[domain.User]
)

// Store aggregates one slice per (entity, operation) of the front end.
type Store struct {
	// Auth and account
	Login                *Slice[domain.Session]
	UserRegister         *Slice[domain.User]
	UserVerify           *Slice[Ack]
	UserUpdate           *Slice[domain.User]
	PasswordResetRequest *Slice[Ack]
	PasswordReset        *Slice[Ack]

	// Adoption
	AdoptionList          *Slice[AdoptionPage]
	AdoptionByID          *Slice[domain.AdoptionPost]
	AdoptionByUser        *Slice[AdoptionPage]
	AdoptionCreate        *Slice[domain.AdoptionPost]
	AdoptionUpdate        *Slice[domain.AdoptionPost]
	AdoptionDelete        *Slice[Ack]
	AdoptionRequestCreate *Slice[domain.AdoptionRequest]
	AdoptionRequestByUser *Slice[[]domain.AdoptionRequest]
	AdoptionRequestByID   *Slice[domain.AdoptionRequest]

	// Missing pets
	MissingList   *Slice[MissingPage]
	MissingByID   *Slice[domain.MissingPost]
	MissingByUser *Slice[MissingPage]
	MissingCreate *Slice[domain.MissingPost]
	MissingUpdate *Slice[domain.MissingPost]
	MissingDelete *Slice[Ack]

	// Missing-pet sightings
	MissingInfoCreate  *Slice[domain.MissingInfo]
	MissingInfoList    *Slice[[]domain.MissingInfo]
	MissingInfoByID    *Slice[domain.MissingInfo]
	MissingInfoApprove *Slice[domain.MissingInfo]

	// Donations
	DonationPostList   *Slice[DonationPage]
	DonationPostByID   *Slice[domain.DonationPost]
	DonationPostByUser *Slice[DonationPage]
	DonationPostCreate *Slice[domain.DonationPost]
	DonationPostUpdate *Slice[domain.DonationPost]
	DonationPostDelete *Slice[Ack]
	DonationCreate     *Slice[domain.Donation]
	DonationByUser     *Slice[[]domain.Donation]

	// Feedback
	FeedbackCreate *Slice[domain.FeedbackEntry]
	FeedbackList   *Slice[[]domain.FeedbackEntry]

	// Admin
	AdminStats            *Slice[domain.AdminStats]
	AdminUsers            *Slice[UserPage]
	AdminBan              *Slice[Ack]
	AdminAdoptionRequests *Slice[[]domain.AdoptionRequest]
	AdminApproveRequest   *Slice[domain.AdoptionRequest]

	all []Resetter
}

// New builds a Store with every slice idle. opts apply to every slice.
func New(opts ...Option) *Store {
	s := &Store{}

	s.Login = add[domain.Session](s, "auth.login", opts)
	s.UserRegister = add[domain.User](s, "user.register", opts)
	s.UserVerify = add[Ack](s, "user.verify", opts)
	s.UserUpdate = add[domain.User](s, "user.update", opts)
	s.PasswordResetRequest = add[Ack](s, "password.resetRequest", opts)
	s.PasswordReset = add[Ack](s, "password.reset", opts)

	s.AdoptionList = add[AdoptionPage](s, "adoption.list", opts)
	s.AdoptionByID = add[domain.AdoptionPost](s, "adoption.byId", opts)
	s.AdoptionByUser = add[AdoptionPage](s, "adoption.byUser", opts)
	s.AdoptionCreate = add[domain.AdoptionPost](s, "adoption.create", opts)
	s.AdoptionUpdate = add[domain.AdoptionPost](s, "adoption.update", opts)
	s.AdoptionDelete = add[Ack](s, "adoption.delete", opts)
	s.AdoptionRequestCreate = add[domain.AdoptionRequest](s, "adoptionRequest.create", opts)
	s.AdoptionRequestByUser = add[[]domain.AdoptionRequest](s, "adoptionRequest.byUser", opts)
	s.AdoptionRequestByID = add[domain.AdoptionRequest](s, "adoptionRequest.byId", opts)

	s.MissingList = add[MissingPage](s, "missing.list", opts)
	s.MissingByID = add[domain.MissingPost](s, "missing.byId", opts)
	s.MissingByUser = add[MissingPage](s, "missing.byUser", opts)
	s.MissingCreate = add[domain.MissingPost](s, "missing.create", opts)
	s.MissingUpdate = add[domain.MissingPost](s, "missing.update", opts)
	s.MissingDelete = add[Ack](s, "missing.delete", opts)

	s.MissingInfoCreate = add[domain.MissingInfo](s, "missingInfo.create", opts)
	s.MissingInfoList = add[[]domain.MissingInfo](s, "missingInfo.list", opts)
	s.MissingInfoByID = add[domain.MissingInfo](s, "missingInfo.byId", opts)
	s.MissingInfoApprove = add[domain.MissingInfo](s, "missingInfo.approve", opts)

	s.DonationPostList = add[DonationPage](s, "donationPost.list", opts)
	s.DonationPostByID = add[domain.DonationPost](s, "donationPost.byId", opts)
	s.DonationPostByUser = add[DonationPage](s, "donationPost.byUser", opts)
	s.DonationPostCreate = add[domain.DonationPost](s, "donationPost.create", opts)
	s.DonationPostUpdate = add[domain.DonationPost](s, "donationPost.update", opts)
	s.DonationPostDelete = add[Ack](s, "donationPost.delete", opts)
	s.DonationCreate = add[domain.Donation](s, "donation.create", opts)
	s.DonationByUser = add[[]domain.Donation](s, "donation.byUser", opts)

	s.FeedbackCreate = add[domain.FeedbackEntry](s, "feedback.create", opts)
	s.FeedbackList = add[[]domain.FeedbackEntry](s, "feedback.list", opts)

	s.AdminStats = add[domain.AdminStats](s, "admin.stats", opts)
	s.AdminUsers = add[UserPage](s, "admin.users", opts)
	s.AdminBan = add[Ack](s, "admin.ban", opts)
	s.AdminAdoptionRequests = add[[]domain.AdoptionRequest](s, "admin.adoptionRequests", opts)
	s.AdminApproveRequest = add[domain.AdoptionRequest](s, "admin.approveRequest", opts)

	return s
}

func add[T any](s *Store, name string, opts []Option) *Slice[T] {
	sl := NewSlice[T](name, opts...)
	s.all = append(s.all, sl)
	return sl
}

// Slices returns every slice in registration order.
func (s *Store) Slices() []Resetter {
	out := make([]Resetter, len(s.all))
	copy(out, s.all)
	return out
}

// ResetAll returns every slice to idle, as on logout.
func (s *Store) ResetAll() {
	for _, sl := range s.all {
		sl.Reset()
	}
}
