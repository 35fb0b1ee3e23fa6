package onboarding

// Step is a wizard position. Steps run in declaration order.
type Step int

const (
	StepProfile Step = iota
	StepDocument
	StepSelfie
	StepAddress
	StepReview
)

// LastStep is the final wizard position.
const LastStep = StepReview

var stepNames = map[Step]string{
	StepProfile:  "profile",
	StepDocument: "document",
	StepSelfie:   "selfie",
	StepAddress:  "address",
	StepReview:   "review",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Document types accepted by the document step.
const (
	DocumentPassport       = "passport"
	DocumentIDCard         = "id_card"
	DocumentDrivingLicense = "driving_license"
)

type Profile struct {
	FullName    string `json:"fullName" validate:"required,min=2,max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Nationality string `json:"nationality" validate:"required"`
}

type Document struct {
	DocumentType   string `json:"documentType" validate:"required,oneof=passport id_card driving_license"`
	DocumentNumber string `json:"documentNumber" validate:"required,alphanum,min=5,max=20"`
}

type Selfie struct {
	HasSelfie bool `json:"hasSelfie" validate:"required"`
}

type Address struct {
	AddressLine1 string `json:"addressLine1" validate:"required"`
	City         string `json:"city" validate:"required"`
	Country      string `json:"country" validate:"required"`
}

type Consents struct {
	TermsAccepted bool `json:"termsAccepted" validate:"required"`
}

// Draft is the in-progress KYC submission.
type Draft struct {
	Profile  Profile  `json:"profile"`
	Document Document `json:"document"`
	Selfie   Selfie   `json:"selfie"`
	Address  Address  `json:"address"`
	Consents Consents `json:"consents"`
}

// Patches carry only the fields the caller wants to change.
type ProfilePatch struct {
	FullName    *string
	DateOfBirth *string
	Nationality *string
}

type DocumentPatch struct {
	DocumentType   *string
	DocumentNumber *string
}

type SelfiePatch struct {
	HasSelfie *bool
}

type AddressPatch struct {
	AddressLine1 *string
	City         *string
	Country      *string
}

type ConsentsPatch struct {
	TermsAccepted *bool
}
