package fakeapi

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/pawconnect/internal/domain"
)

var (
	errNotFound  = errors.New("not found")
	errConflict  = errors.New("already exists")
	errForbidden = errors.New("forbidden")
	errBadToken  = errors.New("invalid or expired token")
)

const dateLayout = "2006-01-02"

// account is a user row with its credentials.
type account struct {
	domain.User
	hash        string
	verified    bool
	verifyToken string
	resetToken  string
}

func (a *account) isAdmin() bool {
	for _, r := range a.Roles {
		if r.Name == domain.RoleAdmin {
			return true
		}
	}
	return false
}

func (a *account) ref() *domain.PostUser {
	return &domain.PostUser{ID: a.ID, Name: a.Name, Username: a.Username, Email: a.Email}
}

type storedFile struct {
	mime string
	data []byte
}

// state is the whole in-memory dataset of the backend. Every method locks;
// values handed out are copies.
type state struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	users         map[int64]*account
	adoptions     map[int64]*domain.AdoptionPost
	requests      map[int64]*domain.AdoptionRequest
	missing       map[int64]*domain.MissingPost
	infos         map[int64]*domain.MissingInfo
	donationPosts map[int64]*domain.DonationPost
	donations     map[int64]*domain.Donation
	feedback      map[int64]*domain.FeedbackEntry
	files         map[string]storedFile
}

func newState(now func() time.Time) *state {
	return &state{
		now:           now,
		users:         map[int64]*account{},
		adoptions:     map[int64]*domain.AdoptionPost{},
		requests:      map[int64]*domain.AdoptionRequest{},
		missing:       map[int64]*domain.MissingPost{},
		infos:         map[int64]*domain.MissingInfo{},
		donationPosts: map[int64]*domain.DonationPost{},
		donations:     map[int64]*domain.Donation{},
		feedback:      map[int64]*domain.FeedbackEntry{},
		files:         map[string]storedFile{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) today() string { return s.now().Format(dateLayout) }

// values returns the map's values ordered by id, newest first.
func values[T any](m map[int64]*T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, *m[keys[i]])
	}
	return out
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func ownedBy(u *domain.PostUser, uid int64) bool { return u != nil && u.ID == uid }

// ---- users ----

func (s *state) findLogin(login string) *account {
	login = strings.ToLower(strings.TrimSpace(login))
	for _, a := range s.users {
		if strings.ToLower(a.Email) == login || strings.ToLower(a.Username) == login {
			return a
		}
	}
	return nil
}

// addUser creates an account. Unverified accounts get a verification token.
func (s *state) addUser(f domain.SignupForm, hash string, admin, verified bool) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLogin(f.Email) != nil || s.findLogin(f.Username) != nil {
		return nil, errConflict
	}
	roles := []domain.Role{{ID: domain.RoleUserID, Name: domain.RoleUser}}
	if admin {
		roles = append([]domain.Role{{ID: domain.RoleAdminID, Name: domain.RoleAdmin}}, roles...)
	}
	a := &account{
		User: domain.User{
			ID:       s.nextID(),
			Name:     strings.TrimSpace(f.Name),
			Username: strings.TrimSpace(f.Username),
			Email:    strings.TrimSpace(f.Email),
			Roles:    roles,
		},
		hash:     hash,
		verified: verified,
	}
	if !verified {
		a.verifyToken = uuid.NewString()
	}
	s.users[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *state) login(login string) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.findLogin(login)
	if a == nil {
		return nil, errNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *state) user(id int64) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *state) verify(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if token != "" && a.verifyToken == token {
			a.verified = true
			a.verifyToken = ""
			return nil
		}
	}
	return errBadToken
}

// verificationToken returns the pending verification token of email.
func (s *state) verificationToken(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.findLogin(email)
	if a == nil || a.verifyToken == "" {
		return "", false
	}
	return a.verifyToken, true
}

// requestReset issues a reset token for a known email.
func (s *state) requestReset(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLogin(email)
	if a == nil {
		return "", false
	}
	a.resetToken = uuid.NewString()
	return a.resetToken, true
}

func (s *state) resetPassword(token, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if token != "" && a.resetToken == token {
			a.hash = hash
			a.resetToken = ""
			return nil
		}
	}
	return errBadToken
}

func (s *state) updateUser(id int64, p domain.ProfileUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return domain.User{}, errNotFound
	}
	for _, other := range []string{p.Email, p.Username} {
		if other == "" {
			continue
		}
		if dup := s.findLogin(other); dup != nil && dup.ID != id {
			return domain.User{}, errConflict
		}
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&a.Name, p.Name)
	set(&a.Username, p.Username)
	set(&a.Email, p.Email)
	set(&a.Bio, p.Bio)
	set(&a.Location, p.Location)
	set(&a.DP, p.DP)
	return a.User, nil
}

func (s *state) listUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, id := range slices.Sorted(maps.Keys(s.users)) {
		out = append(out, s.users[id].User)
	}
	return out
}

// toggleBan flips the ban flag. Admins cannot be banned.
func (s *state) toggleBan(id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return domain.User{}, errNotFound
	}
	if a.isAdmin() {
		return domain.User{}, errForbidden
	}
	a.Banned = !a.Banned
	return a.User, nil
}

// ---- adoption ----

func (s *state) createAdoption(owner *account, p domain.AdoptionPost) domain.AdoptionPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.PostedOn = s.today()
	p.User = owner.ref()
	if p.Availability == nil {
		yes := true
		p.Availability = &yes
	}
	s.adoptions[p.ID] = &p
	return p
}

func (s *state) adoption(id int64) (domain.AdoptionPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.adoptions[id]
	if !ok {
		return domain.AdoptionPost{}, errNotFound
	}
	return *p, nil
}

func (s *state) adoptionsBy(uid int64) []domain.AdoptionPost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := values(s.adoptions)
	if uid == 0 {
		return all
	}
	return filter(all, func(p domain.AdoptionPost) bool { return ownedBy(p.User, uid) })
}

// updateAdoption replaces the editable fields of post id on behalf of actor.
func (s *state) updateAdoption(actor *account, id int64, in domain.AdoptionPost) (domain.AdoptionPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.adoptions[id]
	if !ok {
		return domain.AdoptionPost{}, errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return domain.AdoptionPost{}, errForbidden
	}
	in.ID, in.PostedOn, in.User = p.ID, p.PostedOn, p.User
	if in.Availability == nil {
		in.Availability = p.Availability
	}
	*p = in
	return *p, nil
}

func (s *state) deleteAdoption(actor *account, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.adoptions[id]
	if !ok {
		return errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return errForbidden
	}
	delete(s.adoptions, id)
	for rid, r := range s.requests {
		if r.Post != nil && r.Post.ID == id {
			delete(s.requests, rid)
		}
	}
	return nil
}

// createRequest files an adoption request. Owners cannot request their own
// pet and unavailable pets accept no requests.
func (s *state) createRequest(actor *account, postID int64, r domain.AdoptionRequest) (domain.AdoptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.adoptions[postID]
	if !ok {
		return domain.AdoptionRequest{}, errNotFound
	}
	if ownedBy(p.User, actor.ID) || !p.Available() {
		return domain.AdoptionRequest{}, errForbidden
	}
	post := *p
	r.ID = s.nextID()
	r.Approved = false
	r.Post = &post
	r.User = actor.ref()
	s.requests[r.ID] = &r
	return r, nil
}

func (s *state) requestsBy(uid int64) []domain.AdoptionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := values(s.requests)
	if uid == 0 {
		return all
	}
	return filter(all, func(r domain.AdoptionRequest) bool { return ownedBy(r.User, uid) })
}

// request returns request id when actor filed it, owns the post, or is an
// admin.
func (s *state) request(actor *account, id int64) (domain.AdoptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return domain.AdoptionRequest{}, errNotFound
	}
	if !actor.isAdmin() && !ownedBy(r.User, actor.ID) && (r.Post == nil || !ownedBy(r.Post.User, actor.ID)) {
		return domain.AdoptionRequest{}, errForbidden
	}
	return *r, nil
}

// approveRequest approves request id and marks its pet unavailable.
func (s *state) approveRequest(id int64) (domain.AdoptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return domain.AdoptionRequest{}, errNotFound
	}
	r.Approved = true
	if r.Post != nil {
		if p, ok := s.adoptions[r.Post.ID]; ok {
			no := false
			p.Availability = &no
			post := *p
			r.Post = &post
		}
	}
	return *r, nil
}

// ---- missing ----

func (s *state) createMissing(owner *account, p domain.MissingPost) domain.MissingPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.PostedOn = s.today()
	p.User = owner.ref()
	s.missing[p.ID] = &p
	return p
}

func (s *state) missingPost(id int64) (domain.MissingPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.missing[id]
	if !ok {
		return domain.MissingPost{}, errNotFound
	}
	return *p, nil
}

func (s *state) missingBy(uid int64) []domain.MissingPost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := values(s.missing)
	if uid == 0 {
		return all
	}
	return filter(all, func(p domain.MissingPost) bool { return ownedBy(p.User, uid) })
}

func (s *state) updateMissing(actor *account, id int64, in domain.MissingPost) (domain.MissingPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.missing[id]
	if !ok {
		return domain.MissingPost{}, errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return domain.MissingPost{}, errForbidden
	}
	in.ID, in.PostedOn, in.User = p.ID, p.PostedOn, p.User
	*p = in
	return *p, nil
}

func (s *state) deleteMissing(actor *account, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.missing[id]
	if !ok {
		return errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return errForbidden
	}
	delete(s.missing, id)
	for iid, info := range s.infos {
		if info.MissingPostID == id {
			delete(s.infos, iid)
		}
	}
	return nil
}

func (s *state) addInfo(actor *account, postID int64, in domain.MissingInfo) (domain.MissingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.missing[postID]; !ok {
		return domain.MissingInfo{}, errNotFound
	}
	in.ID = s.nextID()
	in.MissingPostID = postID
	in.Approved = false
	in.PostedOn = s.today()
	in.User = actor.ref()
	s.infos[in.ID] = &in
	return in, nil
}

// infosFor lists sightings. Non-admins see approved ones plus their own.
func (s *state) infosFor(actor *account) []domain.MissingInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := values(s.infos)
	if actor.isAdmin() {
		return all
	}
	return filter(all, func(i domain.MissingInfo) bool { return i.Approved || ownedBy(i.User, actor.ID) })
}

func (s *state) info(actor *account, id int64) (domain.MissingInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.infos[id]
	if !ok {
		return domain.MissingInfo{}, errNotFound
	}
	if !i.Approved && !actor.isAdmin() && !ownedBy(i.User, actor.ID) {
		return domain.MissingInfo{}, errNotFound
	}
	return *i, nil
}

func (s *state) approveInfo(id int64) (domain.MissingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.infos[id]
	if !ok {
		return domain.MissingInfo{}, errNotFound
	}
	i.Approved = true
	return *i, nil
}

// ---- donations ----

func (s *state) createDonationPost(owner *account, p domain.DonationPost) domain.DonationPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.Raised = 0
	p.PostedOn = s.today()
	p.User = owner.ref()
	s.donationPosts[p.ID] = &p
	return p
}

func (s *state) donationPost(id int64) (domain.DonationPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.donationPosts[id]
	if !ok {
		return domain.DonationPost{}, errNotFound
	}
	return *p, nil
}

func (s *state) donationPostsBy(uid int64) []domain.DonationPost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := values(s.donationPosts)
	if uid == 0 {
		return all
	}
	return filter(all, func(p domain.DonationPost) bool { return ownedBy(p.User, uid) })
}

func (s *state) updateDonationPost(actor *account, id int64, in domain.DonationPost) (domain.DonationPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.donationPosts[id]
	if !ok {
		return domain.DonationPost{}, errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return domain.DonationPost{}, errForbidden
	}
	in.ID, in.Raised, in.PostedOn, in.User = p.ID, p.Raised, p.PostedOn, p.User
	*p = in
	return *p, nil
}

func (s *state) deleteDonationPost(actor *account, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.donationPosts[id]
	if !ok {
		return errNotFound
	}
	if !ownedBy(p.User, actor.ID) && !actor.isAdmin() {
		return errForbidden
	}
	delete(s.donationPosts, id)
	return nil
}

// donate records a contribution and adds it to the post's raised total.
func (s *state) donate(actor *account, postID int64, d domain.Donation) (domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.donationPosts[postID]
	if !ok {
		return domain.Donation{}, errNotFound
	}
	d.ID = s.nextID()
	d.DonationPostID = postID
	d.DonatedOn = s.today()
	d.User = actor.ref()
	p.Raised += d.Amount
	s.donations[d.ID] = &d
	return d, nil
}

func (s *state) donationsBy(uid int64) []domain.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(values(s.donations), func(d domain.Donation) bool { return ownedBy(d.User, uid) })
}

// ---- feedback, files, stats ----

func (s *state) addFeedback(f domain.FeedbackEntry) domain.FeedbackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextID()
	f.CreatedAt = s.now().UTC().Format(time.RFC3339)
	s.feedback[f.ID] = &f
	return f
}

func (s *state) listFeedback() []domain.FeedbackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.feedback)
}

func (s *state) putFile(name, mime string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = storedFile{mime: mime, data: data}
}

func (s *state) file(name string) (storedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[name]
	return f, ok
}

func (s *state) stats() domain.AdminStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := domain.AdminStats{
		TotalUsers:            int64(len(s.users)),
		TotalAdoptionPosts:    int64(len(s.adoptions)),
		TotalMissingPosts:     int64(len(s.missing)),
		TotalDonationPosts:    int64(len(s.donationPosts)),
		TotalDonations:        int64(len(s.donations)),
		TotalFeedbackReceived: int64(len(s.feedback)),
	}
	for _, a := range s.users {
		if a.Banned {
			st.BannedUsers++
		}
	}
	for _, r := range s.requests {
		if !r.Approved {
			st.PendingRequests++
		}
	}
	for _, i := range s.infos {
		if !i.Approved {
			st.PendingMissingInfo++
		}
	}
	return st
}
