package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ErrInvalidForm is matched by every *FieldError.
var ErrInvalidForm = errors.New("invalid form")

// FieldError reports the first field of a form that failed local checks.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrInvalidForm) match any field error.
func (e *FieldError) Is(target error) bool { return target == ErrInvalidForm }

func invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Form literals sent to the backend.
const (
	Trained       = "Trained"
	NotTrained    = "Not trained"
	Vaccinated    = "Vaccinated"
	NotVaccinated = "Not vaccinated"

	DefaultContactPurpose = "General Feedback"

	// MaxFeedbackLength caps the feedback description, in characters.
	MaxFeedbackLength = 300
	// MaxRating is the top of the feedback rating scale (1..MaxRating).
	MaxRating = 10

	placeholderMarker = "ImagePlaceholder"
)

// ImageOrEmpty returns "" for unset or placeholder images and the trimmed
// reference otherwise.
func ImageOrEmpty(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, placeholderMarker) {
		return ""
	}
	return ref
}

func trainingLabel(b bool) string {
	if b {
		return Trained
	}
	return NotTrained
}

func vaccineLabel(b bool) string {
	if b {
		return Vaccinated
	}
	return NotVaccinated
}

type required struct{ field, value string }

func firstMissing(fields ...required) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.field, "%s is required", f.field)
		}
	}
	return nil
}

// ---- adoption ----

// AdoptionForm is the user-facing adoption post form. Training and Vaccine
// are checkboxes; Images holds up to three uploaded references.
type AdoptionForm struct {
	Name              string
	Breed             string
	Training          bool
	Vaccine           bool
	Color             string
	Description       string
	PhysicalCondition string
	Location          string
	Behaviour         string
	Food              string
	Gender            string
	Type              string
	Mobile            string
	Availability      *bool
	Images            [3]string
}

// Payload applies the wire transforms: checkbox flags become their labels
// and placeholder or missing images become "".
func (f AdoptionForm) Payload() AdoptionPost {
	return AdoptionPost{
		Name:              strings.TrimSpace(f.Name),
		Breed:             strings.TrimSpace(f.Breed),
		Training:          trainingLabel(f.Training),
		Vaccine:           vaccineLabel(f.Vaccine),
		Color:             strings.TrimSpace(f.Color),
		Description:       strings.TrimSpace(f.Description),
		PhysicalCondition: strings.TrimSpace(f.PhysicalCondition),
		ImageOne:          ImageOrEmpty(f.Images[0]),
		ImageTwo:          ImageOrEmpty(f.Images[1]),
		ImageThree:        ImageOrEmpty(f.Images[2]),
		Location:          strings.TrimSpace(f.Location),
		Behaviour:         strings.TrimSpace(f.Behaviour),
		Food:              strings.TrimSpace(f.Food),
		Gender:            strings.TrimSpace(f.Gender),
		Type:              strings.TrimSpace(f.Type),
		Availability:      f.Availability,
		Mobile:            strings.TrimSpace(f.Mobile),
	}
}

// Validate requires every text field and at least one uploaded image.
func (f AdoptionForm) Validate() error {
	if err := firstMissing(
		required{"name", f.Name},
		required{"breed", f.Breed},
		required{"color", f.Color},
		required{"description", f.Description},
		required{"physicalcondition", f.PhysicalCondition},
		required{"location", f.Location},
		required{"behaviour", f.Behaviour},
		required{"food", f.Food},
		required{"gender", f.Gender},
		required{"type", f.Type},
		required{"mobile", f.Mobile},
	); err != nil {
		return err
	}
	for _, img := range f.Images {
		if ImageOrEmpty(img) != "" {
			return nil
		}
	}
	return invalid("image", "at least one image must be uploaded")
}

// ---- missing ----

// MissingForm is the missing-pet report form. It has a single image slot.
type MissingForm struct {
	Name                string
	Breed               string
	Vaccine             bool
	Color               string
	DateMissing         string
	SpecificAttribute   string
	Location            string
	AccessoriesLastWorn string
	Image               string
	Rewards             string
	Gender              string
	Type                string
}

// Payload sends every optional field as "" rather than leaving it out.
func (f MissingForm) Payload() MissingPost {
	return MissingPost{
		Name:                strings.TrimSpace(f.Name),
		Breed:               strings.TrimSpace(f.Breed),
		Vaccine:             vaccineLabel(f.Vaccine),
		Color:               strings.TrimSpace(f.Color),
		DateMissing:         strings.TrimSpace(f.DateMissing),
		SpecificAttribute:   strings.TrimSpace(f.SpecificAttribute),
		Location:            strings.TrimSpace(f.Location),
		AccessoriesLastWorn: strings.TrimSpace(f.AccessoriesLastWorn),
		Image:               ImageOrEmpty(f.Image),
		Rewards:             strings.TrimSpace(f.Rewards),
		Gender:              strings.TrimSpace(f.Gender),
		Type:                strings.TrimSpace(f.Type),
	}
}

// Validate requires every field, the image included.
func (f MissingForm) Validate() error {
	if err := firstMissing(
		required{"name", f.Name},
		required{"breed", f.Breed},
		required{"color", f.Color},
		required{"datemissing", f.DateMissing},
		required{"specificattribute", f.SpecificAttribute},
		required{"location", f.Location},
		required{"accessorieslastworn", f.AccessoriesLastWorn},
		required{"rewards", f.Rewards},
		required{"gender", f.Gender},
		required{"type", f.Type},
	); err != nil {
		return err
	}
	if ImageOrEmpty(f.Image) == "" {
		return invalid("image", "an image must be uploaded")
	}
	return nil
}

// ---- feedback ----

// FeedbackForm is the contact page form.
type FeedbackForm struct {
	Rating         int
	Description    string
	ContactPurpose string
	Name           string
	Email          string
}

// Payload defaults the contact purpose and drops blank optional fields.
func (f FeedbackForm) Payload() FeedbackEntry {
	purpose := strings.TrimSpace(f.ContactPurpose)
	if purpose == "" {
		purpose = DefaultContactPurpose
	}
	return FeedbackEntry{
		Rating:         f.Rating,
		Description:    strings.TrimSpace(f.Description),
		ContactPurpose: purpose,
		Name:           strings.TrimSpace(f.Name),
		Email:          strings.TrimSpace(f.Email),
	}
}

// Validate requires a rating in 1..MaxRating and a bounded description.
func (f FeedbackForm) Validate() error {
	if f.Rating <= 0 || f.Rating > MaxRating {
		return invalid("rating", "rating must be between 1 and %d", MaxRating)
	}
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return invalid("description", "description is required")
	}
	if utf8.RuneCountInString(desc) > MaxFeedbackLength {
		return invalid("description", "description must not exceed %d characters", MaxFeedbackLength)
	}
	if e := strings.TrimSpace(f.Email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return invalid("email", "email should be valid")
		}
	}
	return nil
}

// ---- auth ----

// Credentials is the sign-in body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate mirrors the backend's sign-in constraints.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return invalid("email", "email or username is required")
	}
	if len(c.Password) < 6 {
		return invalid("password", "password must be at least 6 characters")
	}
	return nil
}

// SignupForm is the registration body.
type SignupForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Validate mirrors the backend's sign-up constraints.
func (f SignupForm) Validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(f.Name)); n < 2 || n > 50 {
		return invalid("name", "name must be between 2 and 50 characters")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(f.Username)); n < 3 || n > 20 {
		return invalid("username", "username must be between 3 and 20 characters")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return invalid("email", "email should be valid")
	}
	return ValidatePassword(f.Password)
}

// ValidatePassword checks the password length bounds shared by sign-up and
// password reset.
func ValidatePassword(p string) error {
	if n := len(p); n < 6 || n > 100 {
		return invalid("password", "password must be between 6 and 100 characters")
	}
	return nil
}

// ProfileUpdate is the body of the profile update call. Empty fields are
// left out so the backend keeps their current values.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	DP       string `json:"dp,omitempty"`
}

// Validate bounds the optional profile fields.
func (p ProfileUpdate) Validate() error {
	if utf8.RuneCountInString(p.Bio) > 1000 {
		return invalid("bio", "bio must not exceed 1000 characters")
	}
	if utf8.RuneCountInString(p.Location) > 200 {
		return invalid("location", "location must not exceed 200 characters")
	}
	if e := strings.TrimSpace(p.Email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return invalid("email", "email should be valid")
		}
	}
	return nil
}

// ---- donations, requests, sightings ----

// DonationForm is a contribution to a donation post.
type DonationForm struct {
	Amount  float64
	Message string
}

// Validate requires a positive amount.
func (f DonationForm) Validate() error {
	if f.Amount <= 0 {
		return invalid("amount", "amount must be greater than 0")
	}
	return nil
}

// Payload trims the optional message.
func (f DonationForm) Payload() Donation {
	return Donation{Amount: f.Amount, Message: strings.TrimSpace(f.Message)}
}

// DonationPostForm creates or edits a donation campaign.
type DonationPostForm struct {
	Title       string
	Description string
	Type        string
	Urgency     string
	Goal        float64
	Image       string
}

// Validate requires the descriptive fields and a positive goal.
func (f DonationPostForm) Validate() error {
	if err := firstMissing(
		required{"title", f.Title},
		required{"description", f.Description},
		required{"type", f.Type},
	); err != nil {
		return err
	}
	if f.Goal <= 0 {
		return invalid("goal", "goal must be greater than 0")
	}
	return nil
}

// Payload defaults urgency to "normal" and blanks placeholder images.
func (f DonationPostForm) Payload() DonationPost {
	urgency := strings.ToLower(strings.TrimSpace(f.Urgency))
	if urgency == "" {
		urgency = "normal"
	}
	return DonationPost{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Type:        strings.ToLower(strings.TrimSpace(f.Type)),
		Urgency:     urgency,
		Goal:        f.Goal,
		Image:       ImageOrEmpty(f.Image),
	}
}

// AdoptionRequestForm is the message a user sends with an adoption request.
type AdoptionRequestForm struct {
	Message string
	Mobile  string
}

// Validate requires a message.
func (f AdoptionRequestForm) Validate() error {
	return firstMissing(required{"message", f.Message})
}

// Payload trims the form fields.
func (f AdoptionRequestForm) Payload() AdoptionRequest {
	return AdoptionRequest{Message: strings.TrimSpace(f.Message), Mobile: strings.TrimSpace(f.Mobile)}
}

// MissingInfoForm reports a sighting of a missing pet.
type MissingInfoForm struct {
	Information string
	Location    string
	Contact     string
}

// Validate requires the sighting text and place.
func (f MissingInfoForm) Validate() error {
	return firstMissing(
		required{"information", f.Information},
		required{"location", f.Location},
	)
}

// Payload trims the form fields.
func (f MissingInfoForm) Payload() MissingInfo {
	return MissingInfo{
		Information: strings.TrimSpace(f.Information),
		Location:    strings.TrimSpace(f.Location),
		Contact:     strings.TrimSpace(f.Contact),
	}
}
