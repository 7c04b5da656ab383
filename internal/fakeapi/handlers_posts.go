package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pawconnect/internal/domain"
)

// field pairs a wire name with its value for presence checks.
type field struct{ name, value string }

func requireFields(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &domain.FieldError{Field: f.name, Message: f.name + " must not be blank"}
		}
	}
	return nil
}

// bind decodes the JSON body into v and runs check on it. It answers 400
// and reports false on failure.
func bind[T any](c *gin.Context, v *T, check func(T) error) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badBody(c)
		return false
	}
	if check != nil {
		if err := check(*v); err != nil {
			fail(c, err, "")
			return false
		}
	}
	return true
}

// byUserID parses the uid path parameter of a by-user listing.
func byUserID(c *gin.Context) (int64, bool) { return idParam(c, "uid") }

// ---- adoption ----

func checkAdoption(p domain.AdoptionPost) error {
	return requireFields(
		field{"name", p.Name},
		field{"type", p.Type},
		field{"gender", p.Gender},
		field{"location", p.Location},
		field{"mobile", p.Mobile},
	)
}

func (s *Server) listAdoptions(c *gin.Context) { paged(s, c, s.st.adoptionsBy(0)) }

func (s *Server) getAdoption(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := s.st.adoption(id)
	if err != nil {
		fail(c, err, "Adoption post")
		return
	}
	s.ok(c, http.StatusOK, "", p)
}

func (s *Server) adoptionsByUser(c *gin.Context) {
	uid, ok := byUserID(c)
	if !ok {
		return
	}
	paged(s, c, s.st.adoptionsBy(uid))
}

func (s *Server) createAdoption(c *gin.Context) {
	owner, ok := s.actingAs(c, "id")
	if !ok {
		return
	}
	var p domain.AdoptionPost
	if !bind(c, &p, checkAdoption) {
		return
	}
	s.ok(c, http.StatusCreated, "Adoption post created successfully", s.st.createAdoption(owner, p))
}

func (s *Server) updateAdoption(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var p domain.AdoptionPost
	if !bind(c, &p, checkAdoption) {
		return
	}
	out, err := s.st.updateAdoption(current(c), id, p)
	if err != nil {
		fail(c, err, "Adoption post")
		return
	}
	s.ok(c, http.StatusOK, "Adoption post updated successfully", out)
}

func (s *Server) deleteAdoption(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.st.deleteAdoption(current(c), id); err != nil {
		fail(c, err, "Adoption post")
		return
	}
	s.ok(c, http.StatusOK, "Adoption post deleted successfully", nil)
}

// createRequest serves /api/adoption/:id/user/:uid/createadoptionrequest.
func (s *Server) createRequest(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := s.actingAs(c, "uid")
	if !ok {
		return
	}
	var r domain.AdoptionRequest
	if !bind(c, &r, func(r domain.AdoptionRequest) error { return requireFields(field{"message", r.Message}) }) {
		return
	}
	out, err := s.st.createRequest(actor, postID, r)
	if err != nil {
		fail(c, err, "Adoption post")
		return
	}
	s.ok(c, http.StatusCreated, "Adoption request sent successfully", out)
}

func (s *Server) requestsByUser(c *gin.Context) {
	actor, ok := s.actingAs(c, "uid")
	if !ok {
		return
	}
	s.list(c, s.st.requestsBy(actor.ID))
}

func (s *Server) getRequest(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := s.st.request(current(c), id)
	if err != nil {
		fail(c, err, "Adoption request")
		return
	}
	s.ok(c, http.StatusOK, "", r)
}

func (s *Server) allRequests(c *gin.Context) { s.list(c, s.st.requestsBy(0)) }

func (s *Server) approveRequest(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := s.st.approveRequest(id)
	if err != nil {
		fail(c, err, "Adoption request")
		return
	}
	s.ok(c, http.StatusOK, "Adoption request approved", r)
}

// ---- missing ----

func checkMissing(p domain.MissingPost) error {
	return requireFields(
		field{"name", p.Name},
		field{"type", p.Type},
		field{"location", p.Location},
		field{"datemissing", p.DateMissing},
	)
}

func (s *Server) listMissing(c *gin.Context) { paged(s, c, s.st.missingBy(0)) }

func (s *Server) getMissing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := s.st.missingPost(id)
	if err != nil {
		fail(c, err, "Missing post")
		return
	}
	s.ok(c, http.StatusOK, "", p)
}

func (s *Server) missingByUser(c *gin.Context) {
	uid, ok := byUserID(c)
	if !ok {
		return
	}
	paged(s, c, s.st.missingBy(uid))
}

func (s *Server) createMissing(c *gin.Context) {
	owner, ok := s.actingAs(c, "id")
	if !ok {
		return
	}
	var p domain.MissingPost
	if !bind(c, &p, checkMissing) {
		return
	}
	s.ok(c, http.StatusCreated, "Missing post created successfully", s.st.createMissing(owner, p))
}

func (s *Server) updateMissing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var p domain.MissingPost
	if !bind(c, &p, checkMissing) {
		return
	}
	out, err := s.st.updateMissing(current(c), id, p)
	if err != nil {
		fail(c, err, "Missing post")
		return
	}
	s.ok(c, http.StatusOK, "Missing post updated successfully", out)
}

func (s *Server) deleteMissing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.st.deleteMissing(current(c), id); err != nil {
		fail(c, err, "Missing post")
		return
	}
	s.ok(c, http.StatusOK, "Missing post deleted successfully", nil)
}

func (s *Server) addInfo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in domain.MissingInfo
	if !bind(c, &in, func(i domain.MissingInfo) error {
		return requireFields(field{"information", i.Information}, field{"location", i.Location})
	}) {
		return
	}
	out, err := s.st.addInfo(current(c), id, in)
	if err != nil {
		fail(c, err, "Missing post")
		return
	}
	s.ok(c, http.StatusCreated, "Information submitted for review", out)
}

func (s *Server) listInfos(c *gin.Context) { s.list(c, s.st.infosFor(current(c))) }

func (s *Server) getInfo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	i, err := s.st.info(current(c), id)
	if err != nil {
		fail(c, err, "Missing information")
		return
	}
	s.ok(c, http.StatusOK, "", i)
}

func (s *Server) approveInfo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	i, err := s.st.approveInfo(id)
	if err != nil {
		fail(c, err, "Missing information")
		return
	}
	s.ok(c, http.StatusOK, "Information approved", i)
}

// ---- donations ----

func checkDonationPost(p domain.DonationPost) error {
	if err := requireFields(field{"title", p.Title}, field{"type", p.Type}); err != nil {
		return err
	}
	if p.Goal <= 0 {
		return &domain.FieldError{Field: "goal", Message: "goal must be greater than 0"}
	}
	return nil
}

func (s *Server) listDonationPosts(c *gin.Context) { paged(s, c, s.st.donationPostsBy(0)) }

func (s *Server) getDonationPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := s.st.donationPost(id)
	if err != nil {
		fail(c, err, "Donation post")
		return
	}
	s.ok(c, http.StatusOK, "", p)
}

func (s *Server) donationPostsByUser(c *gin.Context) {
	uid, ok := byUserID(c)
	if !ok {
		return
	}
	paged(s, c, s.st.donationPostsBy(uid))
}

func (s *Server) createDonationPost(c *gin.Context) {
	owner, ok := s.actingAs(c, "id")
	if !ok {
		return
	}
	var p domain.DonationPost
	if !bind(c, &p, checkDonationPost) {
		return
	}
	s.ok(c, http.StatusCreated, "Donation post created successfully", s.st.createDonationPost(owner, p))
}

func (s *Server) updateDonationPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var p domain.DonationPost
	if !bind(c, &p, checkDonationPost) {
		return
	}
	out, err := s.st.updateDonationPost(current(c), id, p)
	if err != nil {
		fail(c, err, "Donation post")
		return
	}
	s.ok(c, http.StatusOK, "Donation post updated successfully", out)
}

func (s *Server) deleteDonationPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.st.deleteDonationPost(current(c), id); err != nil {
		fail(c, err, "Donation post")
		return
	}
	s.ok(c, http.StatusOK, "Donation post deleted successfully", nil)
}

// donate serves /api/donation/:id/user/:uid/create.
func (s *Server) donate(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := s.actingAs(c, "uid")
	if !ok {
		return
	}
	var d domain.Donation
	if !bind(c, &d, func(d domain.Donation) error {
		if d.Amount <= 0 {
			return &domain.FieldError{Field: "amount", Message: "amount must be greater than 0"}
		}
		return nil
	}) {
		return
	}
	out, err := s.st.donate(actor, postID, d)
	if err != nil {
		fail(c, err, "Donation post")
		return
	}
	s.ok(c, http.StatusCreated, "Thank you for your donation", out)
}

func (s *Server) donationsByUser(c *gin.Context) {
	actor, ok := s.actingAs(c, "uid")
	if !ok {
		return
	}
	s.list(c, s.st.donationsBy(actor.ID))
}
